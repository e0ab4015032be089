// Package jsonfile stores users as a single JSON array on disk. The whole
// file is rewritten on every mutation through a temp file and a rename, so a
// crash mid-write leaves the previous contents intact.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"votronix-auth/internal/domain"
	"votronix-auth/internal/repository"
)

type record struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"password"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type UserRepository struct {
	path string

	mu      sync.RWMutex
	records []record
}

func NewUserRepository(path string) *UserRepository {
	return &UserRepository{path: path}
}

// Init loads the file, creating an empty one when it does not exist yet.
func (r *UserRepository) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.records = nil
		return r.persistLocked(nil)
	}
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	var records []record
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("decode users file %s: %w", r.path, err)
		}
	}
	// files written by older deployments carry neither ids nor normalized emails
	migrated := false
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
			migrated = true
		}
		email := repository.NormalizeEmail(records[i].Email)
		if email != records[i].Email {
			records[i].Email = email
			migrated = true
		}
		if _, dup := seen[email]; dup {
			return fmt.Errorf("users file %s: %w: %q appears more than once", r.path, repository.ErrDuplicateEmail, email)
		}
		seen[email] = struct{}{}
	}

	// assigned ids must survive a restart, tokens carry them
	if migrated {
		if err := r.persistLocked(records); err != nil {
			return err
		}
	}
	r.records = records
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := repository.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByEmailLocked(email) >= 0 {
		return repository.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	rec := record{
		ID:              uuid.NewString(),
		Username:        user.Username,
		Email:           email,
		Password:        user.PasswordHash,
		ProfileImageURL: user.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	next := append(append([]record(nil), r.records...), rec)
	if err := r.persistLocked(next); err != nil {
		return err
	}
	r.records = next

	user.ID = rec.ID
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByEmailLocked(repository.NormalizeEmail(email))
	if i < 0 {
		return nil, repository.ErrUserNotFound
	}
	return toDomain(r.records[i]), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByIDLocked(id)
	if i < 0 {
		return nil, repository.ErrUserNotFound
	}
	return toDomain(r.records[i]), nil
}

func (r *UserRepository) UpdateProfileImage(ctx context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByIDLocked(id)
	if i < 0 {
		return repository.ErrUserNotFound
	}

	next := append([]record(nil), r.records...)
	next[i].ProfileImageURL = url
	next[i].UpdatedAt = time.Now().UTC()
	if err := r.persistLocked(next); err != nil {
		return err
	}
	r.records = next
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByIDLocked(id)
	if i < 0 {
		return repository.ErrUserNotFound
	}

	next := make([]record, 0, len(r.records)-1)
	next = append(next, r.records[:i]...)
	next = append(next, r.records[i+1:]...)
	if err := r.persistLocked(next); err != nil {
		return err
	}
	r.records = next
	return nil
}

func (r *UserRepository) indexByEmailLocked(email string) int {
	for i := range r.records {
		if r.records[i].Email == email {
			return i
		}
	}
	return -1
}

func (r *UserRepository) indexByIDLocked(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *UserRepository) persistLocked(records []record) (err error) {
	if records == nil {
		records = []record{}
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err = enc.Encode(records); err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync users file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err = os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

func toDomain(rec record) *domain.User {
	return &domain.User{
		ID:              rec.ID,
		Username:        rec.Username,
		Email:           rec.Email,
		PasswordHash:    rec.Password,
		ProfileImageURL: rec.ProfileImageURL,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)
