package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"ruconnect/internal/audit"
	"ruconnect/internal/auth/device"
	"ruconnect/internal/auth/revocation"
	"ruconnect/internal/platform/config"
	"ruconnect/internal/platform/metrics"
	"ruconnect/internal/validation"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/platform/sentinel"
)

var tracer = otel.Tracer("ruconnect/internal/auth")

// TokenIssuer mints signed access tokens for a session. The returned
// jti identifies the token on the revocation list.
type TokenIssuer interface {
	GenerateAccessToken(userID domain.UserID, sessionID domain.SessionID, deviceName string, expiresIn time.Duration) (token string, jti string, err error)
}

// AuditPublisher records security-relevant events without blocking the
// request path.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// LoginResult carries everything the transport layer returns on a
// successful login.
type LoginResult struct {
	User        *User
	Session     *Session
	AccessToken string
	ExpiresIn   time.Duration
}

// Service implements local account and session management. Transport
// concerns stay out; handlers consume it behind their own interface.
type Service struct {
	users    UserStore
	sessions SessionStore
	trl      revocation.TokenRevocationList
	tokens   TokenIssuer
	devices  *device.Service
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	tokenTTL   time.Duration
	sessionTTL time.Duration
	bcryptCost int
	clock      func() time.Time
}

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithServiceClock sets the clock function for testability.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(
	users UserStore,
	sessions SessionStore,
	trl revocation.TokenRevocationList,
	tokens TokenIssuer,
	devices *device.Service,
	auditPublisher AuditPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.AuthConfig,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		trl:        trl,
		tokens:     tokens,
		devices:    devices,
		audit:      auditPublisher,
		metrics:    m,
		logger:     logger,
		tokenTTL:   cfg.TokenTTL,
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates a local account. Usernames are unique, compared
// case-insensitively.
func (s *Service) Register(ctx context.Context, username, password, name string) (*User, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	rules := validation.Username(username)
	rules = append(rules, validation.Password(password)...)
	if err := validation.Apply(rules...); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := s.clock()
	user, err := NewUser(domain.NewUserID(), username, name, string(hash), now)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncrementUsersRegistered()
	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventUserRegistered,
		Actor:   user.ID,
		Subject: user.Username,
	})
	span.SetAttributes(attribute.String("user_id", user.ID.String()))

	return user, nil
}

// Login verifies credentials and opens a session. Unknown usernames and
// wrong passwords produce the same error so the endpoint does not leak
// which accounts exist.
func (s *Service) Login(ctx context.Context, username, password, userAgent string) (*LoginResult, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.loginFailed(ctx, username, "unknown username")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, s.loginFailed(ctx, username, "password mismatch")
	}

	now := s.clock()
	deviceName := device.ParseUserAgent(userAgent)
	fingerprint := s.devices.ComputeFingerprint(userAgent)

	session, err := NewSession(domain.NewSessionID(), user.ID, deviceName, fingerprint, now, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	// Issue the token before storing the session so the session row
	// remembers which jti to blacklist on revocation.
	token, jti, err := s.tokens.GenerateAccessToken(user.ID, session.ID, deviceName, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	session.TokenID = jti

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.metrics.IncrementLogin("success")
	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventLogin,
		Actor:   user.ID,
		Subject: user.Username,
		Detail:  map[string]string{"device": deviceName, "session_id": session.ID.String()},
	})
	span.SetAttributes(attribute.String("user_id", user.ID.String()))

	return &LoginResult{
		User:        user,
		Session:     session,
		AccessToken: token,
		ExpiresIn:   s.tokenTTL,
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, username, reason string) error {
	s.metrics.IncrementLogin("failure")
	s.logger.WarnContext(ctx, "login failed", "username", username, "reason", reason)
	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventLoginFailed,
		Subject: username,
		Detail:  map[string]string{"reason": reason},
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Logout revokes the current session and blacklists the presented
// token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, userID domain.UserID, sessionID domain.SessionID, tokenID string) error {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if userID.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if sessionID.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "session ID required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "forbidden")
	}

	if err := session.Revoke(s.clock()); err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist session revocation")
	}

	if tokenID != "" {
		if err := s.trl.RevokeToken(ctx, tokenID, s.tokenTTL); err != nil {
			// The session itself is already revoked; the token still dies
			// at its natural expiry.
			s.logger.ErrorContext(ctx, "failed to add token to revocation list",
				"error", err, "jti", tokenID)
		}
	}

	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventLogout,
		Actor:   userID,
		Subject: sessionID.String(),
	})
	return nil
}

// Sessions lists the user's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID domain.UserID, currentSessionID domain.SessionID) (*SessionsResult, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	now := s.clock()
	result := &SessionsResult{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, session := range sessions {
		result.Sessions = append(result.Sessions, SessionSummary{
			SessionID: session.ID.String(),
			Device:    session.Device,
			Status:    session.Status(now),
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			IsCurrent: session.ID == currentSessionID,
		})
	}
	return result, nil
}

// RevokeSession revokes a single session for the given user and
// blacklists the token issued on it. Revoking an already revoked
// session is a no-op.
func (s *Service) RevokeSession(ctx context.Context, userID domain.UserID, sessionID domain.SessionID) error {
	ctx, span := tracer.Start(ctx, "auth.RevokeSession")
	defer span.End()

	if userID.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if sessionID.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "session ID required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	if session.UserID != userID {
		s.logger.WarnContext(ctx, "session revocation denied, owner mismatch",
			"session_id", sessionID.String(),
			"user_id", userID.String(),
		)
		return dErrors.New(dErrors.CodeForbidden, "forbidden")
	}

	if session.CanRevoke() != nil {
		return nil
	}
	session.ApplyRevoke(s.clock())
	if err := s.sessions.Update(ctx, session); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist session revocation")
	}

	if session.TokenID != "" {
		if err := s.trl.RevokeSessionTokens(ctx, session.ID.String(), []string{session.TokenID}, s.tokenTTL); err != nil {
			// The session row is already revoked; the token still dies
			// at its natural expiry.
			s.logger.ErrorContext(ctx, "failed to add session tokens to revocation list",
				"error", err, "session_id", session.ID.String())
		}
	}

	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventSessionRevoked,
		Actor:   userID,
		Subject: sessionID.String(),
	})
	return nil
}

// GetUser returns the account for the authenticated principal.
func (s *Service) GetUser(ctx context.Context, userID domain.UserID) (*User, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
