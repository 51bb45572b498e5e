package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/atlaslabs/atlas-auth/internal/config"
	"github.com/atlaslabs/atlas-auth/internal/domain"
	"github.com/atlaslabs/atlas-auth/internal/jwt"
	pw "github.com/atlaslabs/atlas-auth/internal/password"
	"github.com/atlaslabs/atlas-auth/internal/repository"
)

const tokenType = "bearer"

// AuthError standardizes client-visible auth failures.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAuthError(code, desc string, status int) *AuthError {
	return &AuthError{Code: code, Description: desc, Status: status}
}

// Login failures and identity failures each use a single message for every
// cause, so responses never reveal whether an email exists.
func errInvalidCredentials() *AuthError {
	return newAuthError("invalid_credentials", "Invalid email or password.", http.StatusUnauthorized)
}

func errNotAuthenticated() *AuthError {
	return newAuthError("invalid_token", "Not authenticated.", http.StatusUnauthorized)
}

// AuthService orchestrates the register, login, and identity flows.
type AuthService struct {
	users  repository.UserRepository
	codec  *jwt.Codec
	cfg    config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, codec *jwt.Codec, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		codec:  codec,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("github.com/atlaslabs/atlas-auth/internal/service"),
	}
}

// Register creates an account and issues its first token. The email
// existence check is advisory; the unique index behind Insert is the real
// guard, so a losing racer still gets the conflict error.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (TokenWithUser, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return TokenWithUser{}, newAuthError("invalid_request", "Email is required.", http.StatusBadRequest)
	}
	if password == "" {
		return TokenWithUser{}, newAuthError("invalid_request", "Password is required.", http.StatusBadRequest)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return TokenWithUser{}, newAuthError("email_taken", "Email already registered.", http.StatusConflict)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		span.RecordError(err)
		return TokenWithUser{}, fmt.Errorf("check existing user: %w", err)
	}

	hashed, err := pw.Hash(password)
	if err != nil {
		span.RecordError(err)
		return TokenWithUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Insert(ctx, domain.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(name),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return TokenWithUser{}, newAuthError("email_taken", "Email already registered.", http.StatusConflict)
	}
	if err != nil {
		span.RecordError(err)
		return TokenWithUser{}, fmt.Errorf("create user: %w", err)
	}

	resp, err := s.issueFor(created)
	if err != nil {
		span.RecordError(err)
		return TokenWithUser{}, err
	}

	s.audit("register.success", "user_id", created.ID.Hex())
	return resp, nil
}

// Login authenticates by email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenWithUser, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return TokenWithUser{}, errInvalidCredentials()
	}
	if err != nil {
		span.RecordError(err)
		return TokenWithUser{}, fmt.Errorf("load user: %w", err)
	}

	if !pw.Verify(password, user.PasswordHash) {
		return TokenWithUser{}, errInvalidCredentials()
	}

	resp, err := s.issueFor(user)
	if err != nil {
		span.RecordError(err)
		return TokenWithUser{}, err
	}

	s.audit("login.success", "user_id", user.ID.Hex())
	return resp, nil
}

// Identify resolves a raw Authorization header to the authenticated user.
// Missing header, wrong scheme, rejected token, empty subject, and unknown
// account all collapse into the same unauthenticated failure.
func (s *AuthService) Identify(ctx context.Context, authorization string) (UserViewModel, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Identify")
	defer span.End()

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return UserViewModel{}, errNotAuthenticated()
	}

	claims, err := s.codec.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		return UserViewModel{}, errNotAuthenticated()
	}

	// The subject is the account email. A durable user id would survive a
	// future email-change feature; email is kept for wire compatibility with
	// tokens already in circulation.
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return UserViewModel{}, errNotAuthenticated()
	}

	user, err := s.users.FindByEmail(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return UserViewModel{}, errNotAuthenticated()
	}
	if err != nil {
		span.RecordError(err)
		return UserViewModel{}, fmt.Errorf("load user: %w", err)
	}

	return publicUser(user), nil
}

func (s *AuthService) issueFor(user domain.User) (TokenWithUser, error) {
	token, err := s.codec.Issue(user.Email)
	if err != nil {
		return TokenWithUser{}, fmt.Errorf("issue token: %w", err)
	}
	return TokenWithUser{
		AccessToken: token,
		TokenType:   tokenType,
		User:        publicUser(user),
	}, nil
}

func publicUser(user domain.User) UserViewModel {
	vm := UserViewModel{
		ID:    user.ID.Hex(),
		Email: user.Email,
	}
	if user.Name != "" {
		name := user.Name
		vm.Name = &name
	}
	return vm
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+3)
	fields = append(fields,
		zap.String("event", event),
		zap.String("environment", s.cfg.Environment),
		zap.Time("timestamp", time.Now().UTC()),
	)
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
