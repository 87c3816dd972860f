package avatars

import "errors"

// Sentinel errors for avatar operations.
var (
	// ErrAvatarNotFound is returned when the user has no stored avatar.
	ErrAvatarNotFound = errors.New("avatar not found")

	// ErrUnsupportedType is returned when the upload is not an image.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("avatar exceeds maximum size")

	// ErrEmptyFile is returned when the upload contains no data.
	ErrEmptyFile = errors.New("avatar file is empty")
)
