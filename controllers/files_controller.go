package controllers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/middleware"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// FileController serves the per-user file pages.
type FileController struct {
	registry *services.FileRegistry
	allowed  []string
}

// NewFileController creates a FileController. allowed is only used for display.
func NewFileController(registry *services.FileRegistry, allowed []string) *FileController {
	return &FileController{registry: registry, allowed: allowed}
}

// List shows the current user's files, newest first.
func (f *FileController) List(ctx *gin.Context) {
	identity, _ := middleware.CurrentIdentity(ctx)
	files, err := f.registry.ListForOwner(ctx.Request.Context(), identity.ID)
	if err != nil {
		utils.Logger.Error("list files", zap.Uint("user_id", identity.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50020, "failed to list files")
		return
	}
	if utils.WantsJSON(ctx) {
		utils.Success(ctx, gin.H{"items": files})
		return
	}
	render(ctx, http.StatusOK, "files.html", gin.H{
		"Title":    "My files",
		"Files":    files,
		"Allowed":  f.allowed,
		"MaxBytes": f.registry.MaxBytes(),
	})
}

// Upload stores the multipart field "file" for the current user.
func (f *FileController) Upload(ctx *gin.Context) {
	identity, _ := middleware.CurrentIdentity(ctx)

	header, err := ctx.FormFile("file")
	if err != nil || header.Filename == "" {
		f.uploadFailed(ctx, http.StatusBadRequest, 40020, utils.FlashWarning, "No file selected.")
		return
	}
	if header.Size > f.registry.MaxBytes() {
		f.uploadFailed(ctx, http.StatusRequestEntityTooLarge, 41301, utils.FlashDanger, f.tooLargeMessage())
		return
	}
	src, err := header.Open()
	if err != nil {
		utils.Logger.Error("open upload", zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50021, "failed to read upload")
		return
	}
	defer src.Close()

	file, err := f.registry.Store(ctx.Request.Context(), identity, src, header.Filename)
	switch {
	case errors.Is(err, services.ErrEmptyFilename):
		f.uploadFailed(ctx, http.StatusBadRequest, 40020, utils.FlashWarning, "No file selected.")
		return
	case errors.Is(err, services.ErrDisallowedExtension):
		f.uploadFailed(ctx, http.StatusBadRequest, 40021, utils.FlashDanger, "File type not allowed.")
		return
	case errors.Is(err, services.ErrFileTooLarge):
		f.uploadFailed(ctx, http.StatusRequestEntityTooLarge, 41301, utils.FlashDanger, f.tooLargeMessage())
		return
	case err != nil:
		utils.RecordFileOp("upload", "error")
		utils.Logger.Error("store upload", zap.Uint("user_id", identity.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50022, "failed to store file")
		return
	}

	utils.RecordFileOp("upload", "ok")
	utils.UploadedBytesTotal.Add(float64(file.SizeBytes))
	utils.Logger.Info("file uploaded",
		zap.Uint("user_id", identity.ID), zap.Uint("file_id", file.ID), zap.Int64("size", file.SizeBytes))

	if utils.WantsJSON(ctx) {
		utils.Respond(ctx, http.StatusCreated, 0, "success", file)
		return
	}
	redirectWithFlash(ctx, "/files", utils.FlashSuccess, fmt.Sprintf("'%s' uploaded successfully!", file.OriginalName))
}

// Download streams the authorized file as an attachment under its original name.
func (f *FileController) Download(ctx *gin.Context) {
	file := middleware.CurrentFile(ctx)
	blob, err := f.registry.Open(ctx.Request.Context(), file)
	if errors.Is(err, services.ErrNotFound) {
		utils.RecordFileOp("download", "missing")
		utils.Fail(ctx, http.StatusNotFound, 40401, "file not found")
		return
	}
	if err != nil {
		utils.RecordFileOp("download", "error")
		utils.Logger.Error("open blob", zap.Uint("file_id", file.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50023, "failed to read file")
		return
	}
	defer blob.Close()

	utils.RecordFileOp("download", "ok")
	h := ctx.Writer.Header()
	h.Set("Content-Type", file.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName}))
	h.Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(ctx.Writer, ctx.Request, file.OriginalName, file.UploadedAt, blob)
}

// Delete removes the authorized file.
func (f *FileController) Delete(ctx *gin.Context) {
	file := middleware.CurrentFile(ctx)
	err := f.registry.Delete(ctx.Request.Context(), file.ID)
	if errors.Is(err, services.ErrNotFound) {
		utils.RecordFileOp("delete", "missing")
		utils.Fail(ctx, http.StatusNotFound, 40401, "file not found")
		return
	}
	if err != nil {
		utils.RecordFileOp("delete", "error")
		utils.Logger.Error("delete file", zap.Uint("file_id", file.ID), zap.Error(err))
		utils.Fail(ctx, http.StatusInternalServerError, 50024, "failed to delete file")
		return
	}

	utils.RecordFileOp("delete", "ok")
	if utils.WantsJSON(ctx) {
		utils.Success(ctx, gin.H{"id": file.ID})
		return
	}
	redirectWithFlash(ctx, "/files", utils.FlashInfo, "File deleted.")
}

func (f *FileController) uploadFailed(ctx *gin.Context, status, code int, category, message string) {
	utils.RecordFileOp("upload", "rejected")
	if utils.WantsJSON(ctx) {
		utils.Error(ctx, status, code, message)
		return
	}
	redirectWithFlash(ctx, "/files", category, message)
}

func (f *FileController) tooLargeMessage() string {
	return fmt.Sprintf("File is too large (max %s).", humanize.Bytes(uint64(f.registry.MaxBytes())))
}
