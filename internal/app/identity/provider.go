package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/user"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
	"relaychat/internal/pkg/req"
)

// Config configures a Provider.
type Config struct {
	JWTSecret  string
	SessionTTL time.Duration
	ResetTTL   time.Duration

	// ResetURL is the client page that accepts ?token=.
	ResetURL string

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// SignUpInput is the payload of a sign-up.
type SignUpInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=64"`
}

// SignInInput is the payload of a sign-in.
type SignInInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is the payload of a profile update.
type ProfileInput struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=64"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url,max=2048"`
}

// AuthResult is returned by a successful sign-up or sign-in.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user.User `json:"user"`
	Session   *Session  `json:"-"`
}

// Provider implements account, session, and password reset flows.
type Provider struct {
	accounts  AccountRepository
	registrar *user.Registrar
	sessions  *Sessions
	mailer    Mailer
	cfg       Config
	now       func() time.Time
	logger    zerolog.Logger
}

// NewProvider creates a Provider.
func NewProvider(accounts AccountRepository, registrar *user.Registrar, sessions *Sessions, mailer Mailer, cfg Config) *Provider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = jwt.SessionExpiration
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}

	return &Provider{
		accounts:  accounts,
		registrar: registrar,
		sessions:  sessions,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
		logger:    logx.Component("Identity"),
	}
}

// Sessions returns the session registry.
func (p *Provider) Sessions() *Sessions {
	return p.sessions
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError maps the first failing field of in to its business error.
func validationError(err error) error {
	for _, field := range req.FieldErrors(err) {
		switch field {
		case "Email":
			return errs.NewError(errs.ErrInvalidEmail)
		case "Password":
			return errs.NewError(errs.ErrWeakPassword)
		case "DisplayName":
			return errs.NewError(errs.ErrInvalidDisplayName)
		}
	}
	return errs.Wrap(errs.ErrInvalidParams, err)
}

// SignUp creates an account, registers its user record, and starts a session.
func (p *Provider) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if err := req.Validator().Struct(in); err != nil {
		return AuthResult{}, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, errs.Wrap(errs.ErrUnknown, err)
	}

	account := Account{
		UserID:       randx.UserID(),
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}

	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return AuthResult{}, errs.NewError(errs.ErrEmailAlreadyInUse)
		}
		return AuthResult{}, errs.Wrap(errs.ErrUnknown, err)
	}

	p.logger.Info().Str("uid", account.UserID).Msg("Account created.")
	return p.establish(ctx, account)
}

// SignIn verifies credentials, registers the user record if it is missing, and starts a session.
// Unknown emails and wrong passwords fail identically.
func (p *Provider) SignIn(ctx context.Context, in SignInInput) (AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return AuthResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}

	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return AuthResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}
	if err != nil {
		return AuthResult{}, errs.Wrap(errs.ErrUnknown, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, errs.NewError(errs.ErrInvalidCredentials)
	}

	return p.establish(ctx, account)
}

// establish runs registration for account and starts a session.
func (p *Provider) establish(ctx context.Context, account Account) (AuthResult, error) {
	profile := user.User{
		ID:          account.UserID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		PhotoURL:    account.PhotoURL,
	}

	if _, err := p.registrar.EnsureRegistered(ctx, profile); err != nil {
		return AuthResult{}, err
	}

	sessionID := randx.SessionID()
	token, expiresAt, err := jwt.GenerateToken(&jwt.Payload{
		ID:        account.UserID,
		SessionID: sessionID,
		Email:     account.Email,
	}, p.cfg.JWTSecret, p.cfg.SessionTTL)
	if err != nil {
		return AuthResult{}, errs.Wrap(errs.ErrUnknown, err)
	}

	session := p.sessions.Start(sessionID, profile, token, expiresAt)
	p.logger.Info().Str("uid", account.UserID).Str("session_id", sessionID).Msg("Session started.")

	return AuthResult{Token: token, ExpiresAt: expiresAt, User: profile, Session: session}, nil
}

// SignOut ends the session. Its token stops authenticating immediately.
func (p *Provider) SignOut(sessionID string) {
	p.sessions.End(sessionID)
	p.logger.Info().Str("session_id", sessionID).Msg("Session ended.")
}

// Authenticate resolves a bearer token to its live session.
func (p *Provider) Authenticate(token string) (*Session, error) {
	if token == "" {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	payload, err := jwt.ParseToken(token, p.cfg.JWTSecret)
	if err != nil {
		p.logger.Debug().Err(err).Msg("Rejected token.")
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	session, ok := p.sessions.Get(payload.SessionID)
	if !ok || session.CurrentUser().ID != payload.ID {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	return session, nil
}

// SendPasswordReset emails a reset link to the account registered with email.
// It succeeds without side effects when no such account exists.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err := req.Validator().Var(email, "email"); err != nil {
		return errs.NewError(errs.ErrInvalidEmail)
	}

	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		p.logger.Info().Msg("Password reset requested for unknown email.")
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	token, err := randx.ResetToken()
	if err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	if err := p.accounts.SaveResetToken(ctx, PasswordReset{
		TokenHash: randx.HashToken(token),
		UserID:    account.UserID,
		ExpiresAt: p.now().Add(p.cfg.ResetTTL).UTC(),
	}); err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	if err := p.mailer.SendPasswordReset(ctx, account.Email, p.resetLink(token)); err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	return nil
}

func (p *Provider) resetLink(token string) string {
	link, err := url.Parse(p.cfg.ResetURL)
	if err != nil {
		return p.cfg.ResetURL + "?token=" + url.QueryEscape(token)
	}

	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()
	return link.String()
}

// ResetPassword sets a new password using an emailed token. Tokens are single use, and every
// session of the account ends.
func (p *Provider) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !randx.IsValidResetToken(token) {
		return errs.NewError(errs.ErrResetTokenInvalid)
	}
	if err := req.Validator().Var(newPassword, "min=6,max=72"); err != nil {
		return errs.NewError(errs.ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cfg.BcryptCost)
	if err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	uid, err := p.accounts.RedeemResetToken(ctx, randx.HashToken(token), string(hash), p.now())
	if errors.Is(err, ErrResetNotFound) {
		return errs.NewError(errs.ErrResetTokenInvalid)
	}
	if err != nil {
		return errs.Wrap(errs.ErrUnknown, err)
	}

	p.sessions.EndUser(uid)
	p.logger.Info().Str("uid", uid).Msg("Password reset completed.")
	return nil
}

// UpdateProfile changes the display name and avatar of the session's user everywhere:
// the account, the user record, and every live session of that user.
func (p *Provider) UpdateProfile(ctx context.Context, session *Session, in ProfileInput) (user.User, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)

	if err := req.Validator().Struct(in); err != nil {
		return user.User{}, validationError(err)
	}

	uid := session.CurrentUser().ID

	if err := p.accounts.UpdateAccountProfile(ctx, uid, in.DisplayName, in.PhotoURL); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return user.User{}, errs.NewError(errs.ErrUserNotFound)
		}
		return user.User{}, errs.Wrap(errs.ErrUnknown, err)
	}

	updated, err := p.registrar.UpdateProfile(ctx, uid, user.Profile{DisplayName: in.DisplayName, PhotoURL: in.PhotoURL})
	if err != nil {
		return user.User{}, err
	}

	p.sessions.UpdateUser(updated)
	return updated, nil
}
