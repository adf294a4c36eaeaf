package handler

import (
	"net/http"
	"path/filepath"

	"relaychat/internal/app/identity"
	"relaychat/internal/app/storage"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// AvatarFormField is the multipart field that carries the avatar image.
const AvatarFormField = "avatar"

// PresignAvatarInput defines the JSON input structure for generating an avatar upload URL.
type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL creates an HTTP HandlerFunc that returns a time-limited, pre-signed
// PUT URL for a new avatar of the caller. The client uploads to it and then submits the
// returned publicUrl as photoURL of a profile update.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		var input PresignAvatarInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if customErr := storage.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateFileType(input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := storage.AvatarKey(session.CurrentUser().ID, filepath.Ext(input.FileName))

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrFileStorageFailed, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"publicUrl":    deps.StorageService.PublicURL(fileKey),
		})
	}
}

// HandleUploadAvatar accepts a multipart avatar, detects its type from the content, stores it,
// and makes it the caller's photo.
func HandleUploadAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		if err := req.SetupMultipart(w, r); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, _, err := r.FormFile(AvatarFormField)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		sniffed, err := storage.SniffAvatar(file)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		current := session.CurrentUser()
		fileKey := storage.AvatarKey(current.ID, sniffed.Ext)

		if err := deps.StorageService.Upload(r.Context(), fileKey, sniffed.MIMEType, sniffed.Body); err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrFileStorageFailed, err))
			return
		}

		updated, err := applyProfile(r.Context(), deps, session, identity.ProfileInput{
			DisplayName: current.DisplayName,
			PhotoURL:    deps.StorageService.PublicURL(fileKey),
		})
		if err != nil {
			if delErr := deps.StorageService.Delete(r.Context(), fileKey); delErr != nil {
				logx.Error(delErr, "failed to remove orphaned avatar", "key", fileKey)
			}
			resp.RespondError(w, r, err)
			return
		}

		logx.Info("avatar uploaded", "uid", current.ID, "key", fileKey, "size", sniffed.Size)
		resp.RespondSuccess(w, r, map[string]any{
			"user": updated,
		})
	}
}
