package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/model"
	"gorm.io/gorm"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) oauth.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *oauth.RefreshToken) error {
	row := model.RefreshToken{
		Token:       token.ID,
		AccessToken: token.AccessTokenID,
		ExpiresAt:   token.ExpiresAt,
		Revoked:     token.Revoked,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("refresh token identifier collision: %w", err)
		}
		return err
	}
	return nil
}

// ConsumeRefreshToken has the same conditional-update shape as
// ConsumeAuthCode: rotation is at-most-once across server instances.
func (r *refreshTokenRepository) ConsumeRefreshToken(ctx context.Context, id string) (*oauth.RefreshToken, error) {
	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, oauth.ErrNotFound
	}

	var row model.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &oauth.RefreshToken{
		ID:            row.Token,
		AccessTokenID: row.AccessToken,
		ExpiresAt:     row.ExpiresAt,
		Revoked:       row.Revoked,
	}, nil
}

func (r *refreshTokenRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("token = ?", id).
		Update("revoked", true).Error
}

func (r *refreshTokenRepository) IsRefreshTokenRevoked(ctx context.Context, id string) (bool, error) {
	var row model.RefreshToken
	err := r.db.WithContext(ctx).Select("revoked").Where("token = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return row.Revoked, nil
}
