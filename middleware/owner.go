package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/utils"
)

// ContextFileKey stores the authorized *models.File for per-file routes.
const ContextFileKey = "file"

// FileLookup loads file metadata by id.
type FileLookup interface {
	Fetch(ctx context.Context, id uint) (*models.File, error)
}

// FileOwner loads the file named by the :id parameter and lets the request
// through only when the current identity owns it. Missing files are 404 and
// other users' files are 403. Must run after LoginRequired.
func FileOwner(files FileLookup) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
		if err != nil || id == 0 {
			utils.Fail(ctx, http.StatusNotFound, 40401, "file not found")
			return
		}

		f, err := files.Fetch(ctx.Request.Context(), uint(id))
		if errors.Is(err, services.ErrNotFound) {
			utils.Fail(ctx, http.StatusNotFound, 40401, "file not found")
			return
		}
		if err != nil {
			utils.Logger.Error("load file", zap.Uint64("file_id", id), zap.Error(err))
			utils.Fail(ctx, http.StatusInternalServerError, 50001, "failed to load file")
			return
		}

		identity, _ := CurrentIdentity(ctx)
		if err := services.Authorize(identity, f); err != nil {
			utils.Logger.Warn("file access denied",
				zap.Uint("user_id", identity.ID), zap.Uint("file_id", f.ID), zap.String("path", ctx.Request.URL.Path))
			utils.Fail(ctx, http.StatusForbidden, 40301, "you do not have access to this file")
			return
		}

		ctx.Set(ContextFileKey, f)
		ctx.Next()
	}
}

// CurrentFile returns the file authorized by FileOwner.
func CurrentFile(ctx *gin.Context) *models.File {
	v, ok := ctx.Get(ContextFileKey)
	if !ok {
		return nil
	}
	f, _ := v.(*models.File)
	return f
}
