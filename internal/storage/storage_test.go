package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func TestDecodeImage_RawBase64(t *testing.T) {
	data, ct, err := DecodeImage(base64.StdEncoding.EncodeToString(pngBytes), 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, pngBytes, data)
}

func TestDecodeImage_DataURI(t *testing.T) {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	_, ct, err := DecodeImage(payload, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
}

func TestDecodeImage_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"not base64":    "%%%not-base64%%%",
		"not an image":  base64.StdEncoding.EncodeToString([]byte("hello, plain text")),
		"url-encoded":   "data:image/png,rawbytes",
		"empty datauri": "data:image/png;base64,",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeImage(payload, 0)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

func TestDecodeImage_TooLarge(t *testing.T) {
	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 1024)...)
	_, _, err := DecodeImage(base64.StdEncoding.EncodeToString(big), 512)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	f.body, _ = io.ReadAll(input.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{
		Location: "https://bucket.s3.amazonaws.com/" + aws.ToString(input.Key),
	}, nil
}

func TestS3Service_UploadImage(t *testing.T) {
	up := &fakeUploader{}
	svc := &S3Service{uploader: up, opts: S3Options{Bucket: "media", KeyPrefix: "/votronix/"}}

	url, err := svc.UploadImage(context.Background(), pngBytes, "image/png")
	require.NoError(t, err)

	key := aws.ToString(up.input.Key)
	assert.True(t, strings.HasPrefix(key, "votronix/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "media", aws.ToString(up.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(up.input.ContentType))
	assert.Equal(t, pngBytes, up.body)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/"+key, url)
}

func TestS3Service_PublicBaseURL(t *testing.T) {
	up := &fakeUploader{}
	svc := &S3Service{uploader: up, opts: S3Options{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"}}

	url, err := svc.UploadImage(context.Background(), pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(up.input.Key), url)
}

func TestS3Service_Errors(t *testing.T) {
	_, err := (&S3Service{uploader: &fakeUploader{}}).UploadImage(context.Background(), pngBytes, "image/png")
	require.Error(t, err)

	svc := &S3Service{uploader: &fakeUploader{err: errors.New("access denied")}, opts: S3Options{Bucket: "media"}}
	_, err = svc.UploadImage(context.Background(), pngBytes, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
