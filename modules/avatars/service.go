package avatars

import (
	"context"
	"fmt"
	"time"

	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

// MaxAvatarSize is the upload size limit.
const MaxAvatarSize = 5 * 1024 * 1024

// extensions maps accepted image content types to storage file extensions.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// AvatarInfo describes a stored avatar.
type AvatarInfo struct {
	UserID      string    `json:"user_id"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ValidateUpload checks the content type and size of an avatar upload.
func ValidateUpload(data []byte, contentType string) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if len(data) > MaxAvatarSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), MaxAvatarSize)
	}
	if _, ok := extensions[contentType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return nil
}

// storageKey builds the object key for a user's avatar. One avatar per user;
// uploading again replaces the previous one.
func storageKey(userID, contentType string) string {
	return fmt.Sprintf("%s/avatar.%s", userID, extensions[contentType])
}

// Service stores user avatars in the avatars bucket.
type Service struct {
	bucket fsjetstream.FileStoragePort
}

// NewService creates a new avatar service with the given storage bucket.
func NewService(bucket fsjetstream.FileStoragePort) *Service {
	return &Service{bucket: bucket}
}

// Store validates and saves a user's avatar, replacing any previous one.
func (s *Service) Store(ctx context.Context, userID string, data []byte, contentType string) (*AvatarInfo, error) {
	if err := ValidateUpload(data, contentType); err != nil {
		return nil, err
	}

	// Drop any previous avatar stored under a different extension.
	existing, err := s.bucket.List(fsjetstream.WithPrefix(userID + "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to list avatars: %w", err)
	}

	key := storageKey(userID, contentType)
	for _, obj := range existing {
		if obj.Name == key {
			continue
		}
		if err := s.bucket.Delete(obj.Name); err != nil {
			return nil, fmt.Errorf("failed to remove previous avatar: %w", err)
		}
	}

	info, err := s.bucket.Put(ctx, key, data,
		fsjetstream.WithDescription(fmt.Sprintf("Avatar for user %s", userID)),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type": contentType,
			"User-ID":      userID,
			"Uploaded-At":  time.Now().UTC().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	return &AvatarInfo{
		UserID:      userID,
		Size:        int64(info.Size),
		ContentType: contentType,
		UploadedAt:  info.ModTime,
	}, nil
}

// Get retrieves a user's avatar.
func (s *Service) Get(ctx context.Context, userID string) ([]byte, *AvatarInfo, error) {
	objects, err := s.bucket.List(fsjetstream.WithPrefix(userID + "/"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list avatars: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil, ErrAvatarNotFound
	}

	obj := objects[0]
	data, err := s.bucket.Get(obj.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get avatar: %w", err)
	}

	contentType := obj.Headers["Content-Type"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, &AvatarInfo{
		UserID:      userID,
		Size:        int64(obj.Size),
		ContentType: contentType,
		UploadedAt:  obj.ModTime,
	}, nil
}

// Delete removes a user's avatar.
func (s *Service) Delete(ctx context.Context, userID string) error {
	objects, err := s.bucket.List(fsjetstream.WithPrefix(userID + "/"))
	if err != nil {
		return fmt.Errorf("failed to list avatars: %w", err)
	}
	if len(objects) == 0 {
		return ErrAvatarNotFound
	}

	for _, obj := range objects {
		if err := s.bucket.Delete(obj.Name); err != nil {
			return fmt.Errorf("failed to delete avatar: %w", err)
		}
	}
	return nil
}
