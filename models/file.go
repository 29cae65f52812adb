package models

import (
	"time"

	"gorm.io/gorm"
)

// File is the metadata of one uploaded blob. The bytes live in the upload
// directory under StoredName, which is generated and never taken from the client.
type File struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StoredName   string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	OriginalName string    `gorm:"size:300;not null" json:"original_name"`
	SizeBytes    int64     `gorm:"not null;default:0" json:"size_bytes"`
	ContentType  string    `gorm:"size:255" json:"content_type"`
	UploadedAt   time.Time `gorm:"index;not null" json:"uploaded_at"`
	OwnerID      uint      `gorm:"index;not null" json:"owner_id"`
}

// BeforeCreate stamps the upload time.
func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	return nil
}
