package storage

import (
	"context"
	"errors"
)

var (
	// ErrInvalidImage means the payload is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrImageTooLarge means the decoded image exceeds the configured limit.
	ErrImageTooLarge = errors.New("image too large")
)

// Service stores media in remote object storage.
type Service interface {
	// UploadImage stores data and returns a URL clients can fetch it from.
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
}
