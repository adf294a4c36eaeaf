package user

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"relaychat/internal/app/live"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Directory serves one-shot reads of the user list.
type Directory struct {
	repo   Repository
	logger zerolog.Logger
}

// NewDirectory creates a Directory over repo.
func NewDirectory(repo Repository) *Directory {
	return &Directory{
		repo:   repo,
		logger: logx.Component("Directory"),
	}
}

// Fetch returns every user except selfID, sorted by display name.
// The list is a point-in-time read; it does not update live.
func (d *Directory) Fetch(ctx context.Context, selfID string) ([]User, error) {
	all, err := d.repo.ListUsers(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrLoadFailed, err)
	}

	others := lo.Reject(all, func(u User, _ int) bool {
		return u.ID == selfID
	})

	sort.SliceStable(others, func(i, j int) bool {
		a, b := strings.ToLower(others[i].DisplayName), strings.ToLower(others[j].DisplayName)
		if a != b {
			return a < b
		}
		return others[i].ID < others[j].ID
	})

	return others, nil
}

// Get returns the user with the given uid.
func (d *Directory) Get(ctx context.Context, uid string) (User, error) {
	u, err := d.repo.GetUser(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}
	if err != nil {
		return User{}, errs.Wrap(errs.ErrLoadFailed, err)
	}
	return u, nil
}

// Filter keeps the users whose display name contains search, ignoring case.
// An empty search returns users unchanged.
func Filter(users []User, search string) []User {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return users
	}

	return lo.Filter(users, func(u User, _ int) bool {
		return strings.Contains(strings.ToLower(u.DisplayName), needle)
	})
}

// Registrar creates the user record of an identity the first time it signs in.
type Registrar struct {
	repo   Repository
	pub    live.Publisher
	logger zerolog.Logger
}

// NewRegistrar creates a Registrar. pub is notified whenever a record is created.
func NewRegistrar(repo Repository, pub live.Publisher) *Registrar {
	return &Registrar{
		repo:   repo,
		pub:    pub,
		logger: logx.Component("Registrar"),
	}
}

// EnsureRegistered inserts u unless its record already exists. Running it any number
// of times, concurrently or not, leaves exactly one record.
func (r *Registrar) EnsureRegistered(ctx context.Context, u User) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, errs.Wrap(errs.ErrInvalidParams, err)
	}

	created, err := r.repo.CreateUserIfAbsent(ctx, u)
	if err != nil {
		return false, errs.Wrap(errs.ErrUnknown, err)
	}

	if created {
		r.logger.Info().Str("uid", u.ID).Msg("User record created.")
		if err := r.pub.Publish(ctx, live.TopicUsers); err != nil {
			r.logger.Warn().Err(err).Str("uid", u.ID).Msg("Failed to publish user change.")
		}
	}

	return created, nil
}

// UpdateProfile replaces the display name and avatar of uid and announces the change.
func (r *Registrar) UpdateProfile(ctx context.Context, uid string, p Profile) (User, error) {
	u, err := r.repo.UpdateUserProfile(ctx, uid, p)
	if errors.Is(err, ErrNotFound) {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}
	if err != nil {
		return User{}, errs.Wrap(errs.ErrUnknown, err)
	}

	if err := r.pub.Publish(ctx, live.TopicUsers); err != nil {
		r.logger.Warn().Err(err).Str("uid", uid).Msg("Failed to publish user change.")
	}

	return u, nil
}
