package storage

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMaxImageBytes bounds decoded uploads.
const DefaultMaxImageBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// DecodeImage accepts raw base64 or a data URI ("data:image/png;base64,...")
// and returns the bytes with their sniffed content type.
func DecodeImage(payload string, maxBytes int) ([]byte, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	encoded := strings.TrimSpace(payload)
	if strings.HasPrefix(encoded, "data:") {
		header, rest, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("%w: data uri must be base64 encoded", ErrInvalidImage)
		}
		encoded = rest
	}
	if encoded == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+3 {
		return nil, "", ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(data) > maxBytes {
		return nil, "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, contentType)
	}
	return data, contentType, nil
}

func extensionFor(contentType string) string {
	return imageExtensions[contentType]
}
