package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/storage"
	"github.com/cppla/filebox/utils"
)

const (
	maxEmailLen       = 120
	maxDisplayNameLen = 150
	minPasswordLen    = 8
	maxPasswordLen    = 72 // bcrypt ignores anything longer
)

// CredentialStore persists accounts and verifies logins.
type CredentialStore struct {
	db    *gorm.DB
	blobs *storage.DiskStore
}

// NewCredentialStore creates a CredentialStore. blobs is used to clean up a
// deleted account's files.
func NewCredentialStore(db *gorm.DB, blobs *storage.DiskStore) *CredentialStore {
	return &CredentialStore{db: db, blobs: blobs}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Only the bcrypt hash of the password is stored.
func (s *CredentialStore) Register(ctx context.Context, email, displayName, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	displayName = strings.TrimSpace(utils.SanitizeText(displayName))

	if !validEmail(email) {
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxDisplayNameLen)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Email: email, DisplayName: displayName, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		// lost a race with a concurrent registration of the same address
		if isDuplicateKey(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate returns the user when the password matches. Unknown emails and
// wrong passwords yield the same error after the same amount of bcrypt work.
func (s *CredentialStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Lookup loads a user by id.
func (s *CredentialStore) Lookup(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// CountFiles returns how many files the identity owns.
func (s *CredentialStore) CountFiles(ctx context.Context, id Identity) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.File{}).Where("owner_id = ?", id.ID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

// DeleteAccount removes the user and everything they own after re-checking the
// password. Rows go in one transaction; blobs are removed afterwards and a blob
// that is already gone is ignored. It returns the number of files removed.
func (s *CredentialStore) DeleteAccount(ctx context.Context, id Identity, password string) (int, error) {
	user, err := s.Lookup(ctx, id.ID)
	if err != nil {
		return 0, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return 0, ErrInvalidCredentials
	}

	var storedNames []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("owner_id = ?", user.ID).Pluck("stored_name", &storedNames).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.File{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, user.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("delete account %d: %w", user.ID, err)
	}

	for _, name := range storedNames {
		if err := s.blobs.Remove(name); err != nil {
			utils.Logger.Warn("remove blob of deleted account",
				zap.Uint("user_id", user.ID), zap.String("stored_name", name), zap.Error(err))
		}
	}
	utils.Logger.Info("account deleted", zap.Uint("user_id", user.ID), zap.Int("files", len(storedNames)))
	return len(storedNames), nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
