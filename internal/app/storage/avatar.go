package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"relaychat/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar size in megabytes.
	MaxAvatarSizeMB = 5

	// MaxAvatarSize is the maximum allowed avatar size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which the upload URL is valid (5 minutes).
	PresignedURLDuration = 5 * time.Minute

	avatarPrefix = "avatars"
)

// AllowedMIMETypes defines the set of permitted avatar MIME types.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var mimeToExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAvatarSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks that the declared MIME type is allowed and agrees with the file extension.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// AvatarKey returns a fresh object key for an avatar of uid with the given extension.
func AvatarKey(uid, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", avatarPrefix, uid, uuid.NewString(), strings.ToLower(ext))
}

// OwnsAvatarKey reports whether key lies in uid's avatar namespace.
func OwnsAvatarKey(uid, key string) bool {
	return strings.HasPrefix(key, fmt.Sprintf("%s/%s/", avatarPrefix, uid))
}

// SniffedFile is an uploaded file whose type was detected from its content.
type SniffedFile struct {
	MIMEType string
	Ext      string
	Size     int64
	Body     io.Reader
}

// SniffAvatar reads at most MaxAvatarSize bytes of r and detects the image type from the
// content. The declared type and file name are ignored.
func SniffAvatar(r io.Reader) (SniffedFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return SniffedFile{}, errs.Wrap(errs.ErrFormParseFailed, err)
	}
	if customErr := ValidateFileSize(int64(len(data))); customErr != nil {
		return SniffedFile{}, customErr
	}

	detected := mimetype.Detect(data)
	mime := strings.ToLower(detected.String())
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	ext, ok := mimeToExt[mime]
	if !ok {
		return SniffedFile{}, errs.NewError(errs.ErrFileTypeInvalid)
	}

	return SniffedFile{
		MIMEType: mime,
		Ext:      ext,
		Size:     int64(len(data)),
		Body:     bytes.NewReader(data),
	}, nil
}
