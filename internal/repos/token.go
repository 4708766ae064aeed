package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

// TokenRepo stores refresh tokens.
type TokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) error
	GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.UserToken, error)
	DeleteByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) error
	DeleteForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	// DeleteExpired removes tokens whose expiry lies before now and
	// reports how many went away. The janitor calls this nightly.
	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
}

type tokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTokenRepo(db *gorm.DB, baseLog *logger.Logger) TokenRepo {
	return &tokenRepo{db: db, log: baseLog.With("repo", "TokenRepo")}
}

func (r *tokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) error {
	return translate(conn(tx, r.db).WithContext(ctx).Create(token).Error)
}

func (r *tokenRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.UserToken, error) {
	var token types.UserToken
	err := conn(tx, r.db).WithContext(ctx).First(&token, "refresh_token = ?", refreshToken).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *tokenRepo) DeleteByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) error {
	result := conn(tx, r.db).WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&types.UserToken{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tokenRepo) DeleteForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return translate(conn(tx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.UserToken{}).Error)
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := conn(tx, r.db).WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&types.UserToken{})
	return result.RowsAffected, translate(result.Error)
}
