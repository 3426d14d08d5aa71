package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/model"
	"gorm.io/gorm"
)

type authCodeRepository struct {
	db *gorm.DB
}

func NewAuthCodeRepository(db *gorm.DB) oauth.AuthCodeRepository {
	return &authCodeRepository{db: db}
}

func (r *authCodeRepository) CreateAuthCode(ctx context.Context, code *oauth.AuthorizationCode) error {
	row := model.AuthCode{
		Code:        code.ID,
		ClientID:    code.ClientID,
		UserID:      code.UserID,
		RedirectURI: code.RedirectURI,
		Scopes:      joinFields(code.Scopes),
		ExpiresAt:   code.ExpiresAt,
		Revoked:     code.Revoked,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("authorization code identifier collision: %w", err)
		}
		return err
	}
	return nil
}

// ConsumeAuthCode revokes and returns the code in one statement pair. The
// UPDATE matches only unrevoked rows; zero affected rows means the code is
// missing, already redeemed or explicitly revoked, which all read the same.
func (r *authCodeRepository) ConsumeAuthCode(ctx context.Context, id string) (*oauth.AuthorizationCode, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AuthCode{}).
		Where("code = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, oauth.ErrNotFound
	}

	var row model.AuthCode
	if err := r.db.WithContext(ctx).Where("code = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &oauth.AuthorizationCode{
		ID:          row.Code,
		ClientID:    row.ClientID,
		UserID:      row.UserID,
		RedirectURI: row.RedirectURI,
		Scopes:      splitFields(row.Scopes),
		ExpiresAt:   row.ExpiresAt,
		Revoked:     row.Revoked,
	}, nil
}

func (r *authCodeRepository) RevokeAuthCode(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.AuthCode{}).
		Where("code = ?", id).
		Update("revoked", true).Error
}

func (r *authCodeRepository) IsAuthCodeRevoked(ctx context.Context, id string) (bool, error) {
	var row model.AuthCode
	err := r.db.WithContext(ctx).Select("revoked").Where("code = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return row.Revoked, nil
}
