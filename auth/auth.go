// Package auth implements the session actions of the license API: login,
// registration, logout and token refresh.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/utils"
	"go.uber.org/zap"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	logoutPath   = "/auth/logout"
)

// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
var ErrNoRefreshToken = client.ErrNoRefreshToken

// ErrIncompleteResponse is returned when login or register succeed without
// a full token pair.
var ErrIncompleteResponse = errors.New("auth response is missing tokens")

// Authenticator is the session capability set used by callers.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, data models.RegisterData) (*models.User, error)
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	CurrentUser() *models.User
	IsAuthenticated() bool
}

// API is the transport used by Service.
type API interface {
	Do(ctx context.Context, req *client.Request, out any) error
	Refresh(ctx context.Context) (*models.RefreshResponse, error)
}

// SessionStore is the part of session.Store used by Service.
type SessionStore interface {
	SetSession(ctx context.Context, user *models.User, accessToken, refreshToken string) error
	ClearAuth(ctx context.Context) error
	RefreshToken() string
	User() *models.User
	IsAuthenticated() bool
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service implements Authenticator against the REST token endpoints.
type Service struct {
	api      API
	store    SessionStore
	validate *validator.Validate
	logger   *zap.Logger
}

var _ Authenticator = (*Service)(nil)

func NewService(api API, store SessionStore, opts ...Option) *Service {
	s := &Service{
		api:      api,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates with email and password and stores the new session.
// On failure the session is left untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	creds := models.Credentials{Email: email, Password: password}
	if err := s.validateInput(creds); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, loginPath, creds, email)
}

// Register creates an account and stores the new session. It has the same
// contract as Login.
func (s *Service) Register(ctx context.Context, data models.RegisterData) (*models.User, error) {
	if err := s.validateInput(data); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, registerPath, data, data.Email)
}

func (s *Service) authenticate(ctx context.Context, path string, body any, email string) (*models.User, error) {
	var resp models.AuthResponse
	err := s.api.Do(ctx, &client.Request{
		Method:          http.MethodPost,
		Path:            path,
		Body:            body,
		SkipAuthRefresh: true,
	}, &resp)
	if err != nil {
		s.logger.Info("authentication rejected",
			zap.String("path", path),
			zap.String("email", utils.MaskEmail(email)),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, ErrIncompleteResponse
	}
	if err := s.store.SetSession(ctx, resp.User, resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("authenticated",
		zap.String("path", path),
		zap.String("email", utils.MaskEmail(email)),
	)
	return resp.User, nil
}

// Logout invalidates the refresh token server-side when possible and always
// clears the local session.
func (s *Service) Logout(ctx context.Context) {
	if refreshToken := s.store.RefreshToken(); refreshToken != "" {
		err := s.api.Do(ctx, &client.Request{
			Method:          http.MethodPost,
			Path:            logoutPath,
			Body:            models.LogoutRequest{RefreshToken: refreshToken},
			SkipAuthRefresh: true,
		}, nil)
		if err != nil {
			s.logger.Warn("server-side logout failed", zap.Error(err))
		}
	}

	if err := s.store.ClearAuth(ctx); err != nil {
		s.logger.Warn("failed to remove persisted session", zap.Error(err))
	}
	s.logger.Info("logged out")
}

// Refresh rotates the session tokens. A failed refresh clears the session
// and returns the error.
func (s *Service) Refresh(ctx context.Context) error {
	if _, err := s.api.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Service) CurrentUser() *models.User {
	return s.store.User()
}

func (s *Service) IsAuthenticated() bool {
	return s.store.IsAuthenticated()
}

func (s *Service) validateInput(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return &client.APIError{
		Message: "Invalid input",
		Data:    fields,
		Kind:    client.KindClient,
		Err:     err,
	}
}
