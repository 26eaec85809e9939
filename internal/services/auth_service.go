package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/auth"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/models"
	pgrepo "github.com/yoockh/bookbot/internal/repositories/postgres"
	"github.com/yoockh/bookbot/internal/utils"
)

const (
	MsgUserExists    = "Username already exists, please choose another one"
	MsgUserCreated   = "User created successfully, you can now login"
	MsgLogout        = "Logout successful. Please delete the token on the client side."
	msgBadCredential = "Invalid username or password"
)

type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

type AuthService interface {
	// Signup returns a user-facing message; a taken username is not an error.
	Signup(ctx context.Context, username, password string) (string, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Authenticate verifies a bearer token and returns its username.
	Authenticate(token string) (string, error)
	Logout() string
}

type authService struct {
	users  pgrepo.UserRepository
	tokens *auth.Manager
	log    *logrus.Logger
}

func NewAuthService(users pgrepo.UserRepository, tokens *auth.Manager, log *logrus.Logger) AuthService {
	if log == nil {
		log = logger.Discard()
	}
	return &authService{users: users, tokens: tokens, log: log}
}

func (s *authService) Signup(ctx context.Context, username, password string) (string, error) {
	const op = "AuthService.Signup"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "name and password are required", nil)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	created, err := s.users.CreateIfAbsent(ctx, &models.User{Username: username, PasswordHash: hash})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	if !created {
		return MsgUserExists, nil
	}

	s.log.WithField("username", username).Info("user signed up")
	return MsgUserCreated, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	const op = "AuthService.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name and password are required", nil)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, msgBadCredential, nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, utils.ErrPasswordMismatch) {
			return nil, utils.E(utils.CodeUnauthorized, op, msgBadCredential, nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to verify password", err)
	}

	if utils.NeedsRehash(u.PasswordHash) {
		s.upgradeHash(ctx, u, password)
	}

	token, exp, err := s.tokens.Issue(u.Username)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", ExpiresAt: exp}, nil
}

// upgradeHash replaces a legacy digest after a successful login. Failure
// only delays the upgrade to the next login.
func (s *authService) upgradeHash(ctx context.Context, u *models.User, password string) {
	entry := s.log.WithField("username", u.Username)
	hash, err := utils.HashPassword(password)
	if err != nil {
		entry.WithError(err).Warn("password rehash failed")
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		entry.WithError(err).Warn("password rehash not stored")
		return
	}
	entry.Info("legacy password hash upgraded")
}

func (s *authService) Authenticate(token string) (string, error) {
	const op = "AuthService.Authenticate"

	claims, err := s.tokens.Verify(token)
	if err == nil {
		return claims.Subject, nil
	}
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "", utils.E(utils.CodeUnauthorized, op, "Token expired", err)
	case errors.Is(err, auth.ErrInvalidClaims):
		return "", utils.E(utils.CodeUnauthorized, op, "Invalid claims", err)
	case errors.Is(err, auth.ErrInvalidToken):
		return "", utils.E(utils.CodeUnauthorized, op, "Invalid token", err)
	default:
		s.log.WithError(err).Error("token verification failed")
		return "", utils.E(utils.CodeInternal, op, "Internal authentication error", err)
	}
}

func (s *authService) Logout() string { return MsgLogout }
