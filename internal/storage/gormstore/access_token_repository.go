package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/model"
	"gorm.io/gorm"
)

type accessTokenRepository struct {
	db *gorm.DB
}

func NewAccessTokenRepository(db *gorm.DB) oauth.AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

func (r *accessTokenRepository) CreateAccessToken(ctx context.Context, token *oauth.AccessToken) error {
	row := model.AccessToken{
		Token:     token.ID,
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		Scopes:    joinFields(token.Scopes),
		ExpiresAt: token.ExpiresAt,
		Revoked:   token.Revoked,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("access token identifier collision: %w", err)
		}
		return err
	}
	return nil
}

func (r *accessTokenRepository) GetAccessToken(ctx context.Context, id string) (*oauth.AccessToken, error) {
	var row model.AccessToken
	err := r.db.WithContext(ctx).Where("token = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oauth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &oauth.AccessToken{
		ID:        row.Token,
		ClientID:  row.ClientID,
		UserID:    row.UserID,
		Scopes:    splitFields(row.Scopes),
		ExpiresAt: row.ExpiresAt,
		Revoked:   row.Revoked,
	}, nil
}

func (r *accessTokenRepository) RevokeAccessToken(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("token = ?", id).
		Update("revoked", true).Error
}

func (r *accessTokenRepository) IsAccessTokenRevoked(ctx context.Context, id string) (bool, error) {
	var row model.AccessToken
	err := r.db.WithContext(ctx).Select("revoked").Where("token = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return row.Revoked, nil
}
