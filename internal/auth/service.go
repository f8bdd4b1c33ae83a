package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashdeck/flashdeck/internal/config"
	domainerrors "github.com/flashdeck/flashdeck/internal/errors"
	"github.com/flashdeck/flashdeck/internal/models"
	"github.com/flashdeck/flashdeck/internal/store"
	"github.com/flashdeck/flashdeck/internal/validation"
)

// TokenType is reported alongside every issued token pair.
const TokenType = "bearer"

// Credentials is a username and password pair.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// Service owns the account and session lifecycle: registration, login,
// refresh-token rotation, revocation and access-token resolution.
type Service struct {
	store      *store.Store
	tokens     *TokenManager
	refreshTTL time.Duration
	bcryptCost int
	validate   *validation.Validator
	log        *slog.Logger
	now        func() time.Time
}

// NewService creates an auth service backed by st.
func NewService(st *store.Store, cfg config.Auth, log *slog.Logger) *Service {
	return &Service{
		store:      st,
		tokens:     NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		refreshTTL: cfg.RefreshTokenTTL(),
		bcryptCost: cfg.BcryptCost,
		validate:   validation.New(),
		log:        log.With("component", "auth"),
		now:        time.Now,
	}
}

// WithClock replaces the service clock. Used by tests to move time forward.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.tokens.now = now
	return s
}

// Register creates a user. A taken username is a conflict.
func (s *Service) Register(ctx context.Context, creds Credentials) (*models.User, error) {
	if err := s.validate.Validate(creds); err != nil {
		return nil, err
	}

	hash, err := HashPassword(creds.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, domainerrors.Validation(err.Error())
		}
		return nil, domainerrors.Internal(err)
	}

	var user *models.User
	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		user, err = q.CreateUser(ctx, creds.Username, hash, s.now())
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Conflict("Username already registered")
		}
		return nil, domainerrors.Internal(err)
	}

	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (*models.TokenPair, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, domainerrors.ErrInvalidCredentials
	}

	var pair *models.TokenPair
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		user, err := q.GetUserByUsername(ctx, creds.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.ErrInvalidCredentials
			}
			return err
		}
		if !VerifyPassword(user.PasswordHash, creds.Password) {
			return domainerrors.ErrInvalidCredentials
		}

		pair, err = s.issuePair(ctx, q, user)
		return err
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			s.log.Info("login rejected")
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, domainerrors.Internal(err)
	}
	return pair, nil
}

// Refresh consumes a refresh token and issues a new pair. The old token is
// deleted in the same transaction that stores its replacement, so each
// refresh token can be used once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, domainerrors.ErrInvalidRefreshToken
	}

	var pair *models.TokenPair
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		userID, err := q.ConsumeRefreshToken(ctx, refreshToken, s.now())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.ErrInvalidRefreshToken
			}
			return err
		}

		user, err := q.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.ErrInvalidRefreshToken
			}
			return err
		}

		pair, err = s.issuePair(ctx, q, user)
		return err
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidRefreshToken) {
			return nil, domainerrors.ErrInvalidRefreshToken
		}
		return nil, domainerrors.Internal(err)
	}
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domainerrors.ErrInvalidRefreshToken
	}
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		return q.DeleteRefreshToken(ctx, refreshToken)
	})
	if err != nil {
		return domainerrors.Internal(err)
	}
	return nil
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(accessToken)
	if err != nil {
		return nil, domainerrors.ErrUnauthenticated.WithCause(err)
	}

	var user *models.User
	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		user, err = q.GetUserByUsername(ctx, claims.Subject)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrUnauthenticated.WithCause(err)
		}
		return nil, domainerrors.Internal(err)
	}
	return user, nil
}

// CleanupExpired deletes refresh tokens that have expired.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		n, err = q.DeleteExpiredRefreshTokens(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup expired refresh tokens: %w", err)
	}
	return n, nil
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanupExpired(ctx)
			if err != nil {
				s.log.Error("refresh token cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("expired refresh tokens removed", "count", n)
			}
		}
	}
}

func (s *Service) issuePair(ctx context.Context, q *store.Queries, user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := generateRandomToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = q.CreateRefreshToken(ctx, models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  access,
		TokenType:    TokenType,
		RefreshToken: refresh,
	}, nil
}
