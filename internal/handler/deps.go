package handler

import (
	"net/http"
	"strings"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/message"
	"relaychat/internal/app/realtime"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
	"relaychat/internal/configs"
	"relaychat/internal/pkg/logx"
)

// TimezoneQueryParam names the IANA zone used for day separators, e.g. ?tz=Europe/Berlin.
const TimezoneQueryParam = "tz"

// AppDeps carries the services the HTTP layer dispatches to.
type AppDeps struct {
	Config    *configs.AppConfig
	Provider  *identity.Provider
	Directory *user.Directory
	Registry  *chat.Registry
	Feed      *message.Feed
	Composer  *message.Composer
	Editor    *message.Editor
	Gateway   *realtime.Gateway

	// StorageService is nil when no avatar bucket is configured.
	StorageService storage.StorageService

	// DefaultLocation applies when a request carries no usable tz parameter.
	DefaultLocation *time.Location
}

// location resolves the tz query parameter of r, falling back to DefaultLocation.
func (d *AppDeps) location(r *http.Request) *time.Location {
	fallback := d.DefaultLocation
	if fallback == nil {
		fallback = time.UTC
	}

	name := strings.TrimSpace(r.URL.Query().Get(TimezoneQueryParam))
	if name == "" {
		return fallback
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		logx.Warn("Ignoring unknown timezone.", "tz", name)
		return fallback
	}
	return loc
}
