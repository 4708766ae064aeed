package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/authctx"
	"github.com/yadava5/taskflow/internal/config"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/repos"
	"github.com/yadava5/taskflow/internal/types"
)

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Timezone    string
}

// AuthService handles registration, login and token lifecycle.
type AuthService interface {
	// Register creates a user together with their default calendar.
	Register(ctx context.Context, in RegisterInput) (*types.User, error)

	// Login verifies the credentials and issues a fresh token pair.
	Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error)

	// Refresh rotates a refresh token: the old token is revoked and a new
	// pair is issued in its place.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Logout revokes a refresh token. Revoking an unknown token is a no-op.
	Logout(ctx context.Context, refreshToken string) error

	// VerifyAccessToken checks an access token signature and expiry and
	// returns the principal it was issued to.
	VerifyAccessToken(tokenString string) (*authctx.Principal, error)

	// GetUser loads the account behind a principal.
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
}

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	tokenRepo    repos.TokenRepo
	calendarRepo repos.CalendarRepo
	cfg          config.AuthConfig
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, tokenRepo repos.TokenRepo, calendarRepo repos.CalendarRepo, cfg config.AuthConfig) AuthService {
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		calendarRepo: calendarRepo,
		cfg:          cfg,
	}
}

func (as *authService) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%w: timezone %q", ErrValidation, tz)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), as.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Timezone:     tz,
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		cal := &types.Calendar{
			UserID:    user.ID,
			Name:      "Personal",
			Color:     "#3b82f6",
			IsDefault: true,
		}
		return as.calendarRepo.Create(ctx, tx, cal)
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("user registered", "user_id", user.ID, "email", email)
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair, err = as.issueTokens(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	as.log.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := as.tokenRepo.GetByRefreshToken(ctx, tx, refreshToken)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if row.ExpiresAt.Before(time.Now()) {
			_ = as.tokenRepo.DeleteByRefreshToken(ctx, tx, refreshToken)
			return ErrInvalidToken
		}
		user, err := as.userRepo.GetByID(ctx, tx, row.UserID)
		if err != nil {
			return err
		}
		if err := as.tokenRepo.DeleteByRefreshToken(ctx, tx, refreshToken); err != nil {
			return err
		}
		pair, err = as.issueTokens(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	err := as.tokenRepo.DeleteByRefreshToken(ctx, nil, refreshToken)
	if errors.Is(err, repos.ErrNotFound) {
		return nil
	}
	return err
}

func (as *authService) VerifyAccessToken(tokenString string) (*authctx.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(*jwt.Token) (any, error) {
		return []byte(as.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	return &authctx.Principal{UserID: userID, Email: claims.Email}, nil
}

func (as *authService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return as.userRepo.GetByID(ctx, nil, userID)
}

// issueTokens signs an access token and persists a fresh refresh token row.
func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(as.cfg.AccessTokenTTL())
	claims := jwtClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	row := &types.UserToken{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(as.cfg.RefreshTokenTTL()),
	}
	if err := as.tokenRepo.Create(ctx, tx, row); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}
