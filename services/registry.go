package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/storage"
	"github.com/cppla/filebox/utils"
)

// DefaultSweepGrace keeps SweepOrphans away from blobs whose metadata row may
// still be in flight.
const DefaultSweepGrace = 10 * time.Minute

// FileRegistry owns file metadata and maps it to blobs in the DiskStore.
type FileRegistry struct {
	db       *gorm.DB
	blobs    *storage.DiskStore
	allowed  map[string]struct{}
	maxBytes int64

	// SweepGrace is the minimum blob age SweepOrphans will touch.
	SweepGrace time.Duration
}

// NewFileRegistry creates a registry accepting the given lower-case extensions
// (without the dot) up to maxBytes per file.
func NewFileRegistry(db *gorm.DB, blobs *storage.DiskStore, allowedExtensions []string, maxBytes int64) *FileRegistry {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &FileRegistry{
		db:         db,
		blobs:      blobs,
		allowed:    allowed,
		maxBytes:   maxBytes,
		SweepGrace: DefaultSweepGrace,
	}
}

// MaxBytes is the per-file size limit.
func (r *FileRegistry) MaxBytes() int64 { return r.maxBytes }

// Allowed reports whether ext (lower case, no dot) is accepted.
func (r *FileRegistry) Allowed(ext string) bool {
	_, ok := r.allowed[ext]
	return ok
}

// Store validates the filename, writes the blob under a fresh random name and
// records its metadata. Nothing touches the disk unless the extension is allowed.
func (r *FileRegistry) Store(ctx context.Context, owner Identity, src io.Reader, originalFilename string) (*models.File, error) {
	if owner.ID == 0 {
		return nil, ErrForbidden
	}
	originalFilename = strings.TrimSpace(originalFilename)
	if originalFilename == "" {
		return nil, ErrEmptyFilename
	}
	ext := utils.Extension(originalFilename)
	if ext == "" || !r.Allowed(ext) {
		return nil, ErrDisallowedExtension
	}

	storedName := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	size, err := r.blobs.Put(storedName, src, r.maxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, ErrFileTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}

	f := models.File{
		StoredName:   storedName,
		OriginalName: utils.SecureFilename(originalFilename, ext),
		SizeBytes:    size,
		ContentType:  contentTypeFor(ext),
		OwnerID:      owner.ID,
	}
	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		if rmErr := r.blobs.Remove(storedName); rmErr != nil {
			utils.Logger.Warn("remove blob after failed insert", zap.String("stored_name", storedName), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("insert file metadata: %w", err)
	}
	return &f, nil
}

// ListForOwner returns the owner's files, newest first.
func (r *FileRegistry) ListForOwner(ctx context.Context, ownerID uint) ([]models.File, error) {
	files := []models.File{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC").Order("id DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// Fetch loads a file's metadata by id.
func (r *FileRegistry) Fetch(ctx context.Context, id uint) (*models.File, error) {
	var f models.File
	err := r.db.WithContext(ctx).First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load file %d: %w", id, err)
	}
	return &f, nil
}

// Open returns a reader over the blob. A blob removed by a concurrent delete is NotFound.
func (r *FileRegistry) Open(ctx context.Context, f *models.File) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := r.blobs.Open(f.StoredName)
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return rc, nil
}

// Delete removes the metadata row and then the blob. Only one of several
// concurrent deletes of the same file succeeds; the rest get NotFound.
func (r *FileRegistry) Delete(ctx context.Context, id uint) error {
	var f models.File
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&f, id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.File{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	if err := r.blobs.Remove(f.StoredName); err != nil {
		utils.Logger.Warn("remove blob", zap.Uint("file_id", id), zap.String("stored_name", f.StoredName), zap.Error(err))
	}
	return nil
}

// SweepOrphans removes blobs older than SweepGrace that no metadata row refers to.
func (r *FileRegistry) SweepOrphans(ctx context.Context) ([]string, error) {
	names, err := r.blobs.Names()
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	cutoff := time.Now().Add(-r.SweepGrace)

	removed := []string{}
	const batch = 200
	for start := 0; start < len(names); start += batch {
		end := min(start+batch, len(names))
		chunk := names[start:end]

		var known []string
		if err := r.db.WithContext(ctx).Model(&models.File{}).
			Where("stored_name IN ?", chunk).Pluck("stored_name", &known).Error; err != nil {
			return removed, fmt.Errorf("lookup stored names: %w", err)
		}
		referenced := make(map[string]struct{}, len(known))
		for _, n := range known {
			referenced[n] = struct{}{}
		}

		for _, name := range chunk {
			if _, ok := referenced[name]; ok {
				continue
			}
			fi, err := r.blobs.Stat(name)
			if err != nil || fi.ModTime().After(cutoff) {
				continue
			}
			if err := r.blobs.Remove(name); err != nil {
				utils.Logger.Warn("sweep orphan blob", zap.String("stored_name", name), zap.Error(err))
				continue
			}
			removed = append(removed, name)
		}
	}
	return removed, nil
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
