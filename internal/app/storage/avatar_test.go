package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/pkg/errs"
)

// pngHeader is the PNG signature followed by the start of an IHDR chunk.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestValidateFileType(t *testing.T) {
	require.Nil(t, ValidateFileType("me.PNG", "image/png"))
	require.Nil(t, ValidateFileType("me.jpeg", "image/jpeg"))

	require.Equal(t, errs.ErrFileTypeInvalid, ValidateFileType("me.png", "image/jpeg").Code)
	require.Equal(t, errs.ErrFileTypeInvalid, ValidateFileType("me.svg", "image/svg+xml").Code)
	require.Equal(t, errs.ErrFileTypeInvalid, ValidateFileType("noext", "image/png").Code)
}

func TestValidateFileSize(t *testing.T) {
	require.Nil(t, ValidateFileSize(1024))
	require.Equal(t, errs.ErrInvalidParams, ValidateFileSize(0).Code)
	require.Equal(t, errs.ErrFileSizeTooLarge, ValidateFileSize(MaxAvatarSize+1).Code)
}

func TestSniffAvatar(t *testing.T) {
	png := pngHeader

	f, err := SniffAvatar(bytes.NewReader(png))
	require.NoError(t, err)
	require.Equal(t, "image/png", f.MIMEType)
	require.Equal(t, ".png", f.Ext)
	require.EqualValues(t, len(png), f.Size)

	_, err = SniffAvatar(strings.NewReader("<html><body>not an image</body></html>"))
	require.Equal(t, errs.ErrFileTypeInvalid, errs.CodeOf(err))

	_, err = SniffAvatar(bytes.NewReader(make([]byte, MaxAvatarSize+1)))
	require.Equal(t, errs.ErrFileSizeTooLarge, errs.CodeOf(err))
}

func TestAvatarKeys(t *testing.T) {
	key := AvatarKey("u1", ".PNG")
	require.True(t, strings.HasPrefix(key, "avatars/u1/"))
	require.True(t, strings.HasSuffix(key, ".png"))
	require.True(t, OwnsAvatarKey("u1", key))
	require.False(t, OwnsAvatarKey("u2", key))

	url := publicURL("https://cdn.example.com", key)
	got, ok := keyFromURL("https://cdn.example.com", url)
	require.True(t, ok)
	require.Equal(t, key, got)

	_, ok = keyFromURL("https://cdn.example.com", "https://elsewhere.example.com/"+key)
	require.False(t, ok)
	_, ok = keyFromURL("", url)
	require.False(t, ok)
}
