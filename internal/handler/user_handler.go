package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"relaychat/internal/app/identity"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

const avatarCleanupTimeout = 10 * time.Second

// HandleGetUserProfile returns the caller's current profile.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": session.CurrentUser(),
		})
	}
}

// HandleUpdateUserProfile changes the caller's display name and avatar. A photoURL inside
// the avatar bucket must name an uploaded object of the caller; the replaced avatar is removed.
func HandleUpdateUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		var input identity.ProfileInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		uid := session.CurrentUser().ID
		if err := checkAvatarURL(r.Context(), deps.StorageService, uid, input.PhotoURL); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		updated, err := applyProfile(r.Context(), deps, session, input)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": updated,
		})
	}
}

// HandleListUsers returns every other user, optionally narrowed by ?search= on display names.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r)
		if !ok {
			return
		}

		users, err := deps.Directory.Fetch(r.Context(), session.CurrentUser().ID)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": user.Filter(users, r.URL.Query().Get("search")),
		})
	}
}

// checkAvatarURL accepts external URLs as they are and bucket URLs only for existing
// objects in uid's avatar namespace.
func checkAvatarURL(ctx context.Context, store storage.StorageService, uid, photoURL string) error {
	if store == nil || photoURL == "" {
		return nil
	}

	key, inBucket := store.KeyFromURL(photoURL)
	if !inBucket {
		return nil
	}
	if !storage.OwnsAvatarKey(uid, key) {
		logx.Warn("profile update rejected: avatar key outside user namespace", "uid", uid, "key", key)
		return errs.NewError(errs.ErrInvalidParams)
	}

	meta, err := store.GetObjectMetadata(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err != nil {
		return errs.Wrap(errs.ErrFileStorageFailed, err)
	}
	if customErr := storage.ValidateFileSize(meta.ContentLength); customErr != nil {
		return customErr
	}
	if _, allowed := storage.AllowedMIMETypes[meta.ContentType]; !allowed {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// applyProfile updates the profile and removes the previous bucket avatar when it changed.
func applyProfile(ctx context.Context, deps *AppDeps, session *identity.Session, input identity.ProfileInput) (user.User, error) {
	previous := session.CurrentUser().PhotoURL

	updated, err := deps.Provider.UpdateProfile(ctx, session, input)
	if err != nil {
		return user.User{}, err
	}

	if deps.StorageService != nil && previous != "" && previous != updated.PhotoURL {
		if oldKey, ok := deps.StorageService.KeyFromURL(previous); ok && storage.OwnsAvatarKey(updated.ID, oldKey) {
			go func(k string) {
				ctx, cancel := context.WithTimeout(context.Background(), avatarCleanupTimeout)
				defer cancel()
				if err := deps.StorageService.Delete(ctx, k); err != nil {
					logx.Error(err, "failed to delete replaced avatar", "key", k)
				}
			}(oldKey)
		}
	}

	return updated, nil
}
