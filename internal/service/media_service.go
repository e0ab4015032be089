package service

import (
	"context"
	"fmt"

	"votronix-auth/internal/storage"
)

// MediaService proxies image uploads to object storage. Uploads are not
// tied to any user.
type MediaService interface {
	UploadImage(ctx context.Context, payload string) (string, error)
}

type mediaService struct {
	store    storage.Service
	maxBytes int
}

func NewMediaService(store storage.Service, maxBytes int) MediaService {
	return &mediaService{store: store, maxBytes: maxBytes}
}

func (s *mediaService) UploadImage(ctx context.Context, payload string) (string, error) {
	data, contentType, err := storage.DecodeImage(payload, s.maxBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if s.store == nil {
		return "", fmt.Errorf("%w: storage service not configured", ErrUploadFailed)
	}

	url, err := s.store.UploadImage(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return url, nil
}
