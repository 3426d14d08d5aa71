package gormstore

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/model"
	"gorm.io/gorm"
)

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) oauth.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindClient(ctx context.Context, clientID, grantType, secret string, mustValidateSecret bool) (*oauth.Client, error) {
	var row model.Client
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oauth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	client := &oauth.Client{
		ID:           row.ClientID,
		Secret:       row.Secret,
		Name:         row.Name,
		RedirectURIs: splitFields(row.RedirectURIs),
		GrantTypes:   splitFields(row.GrantTypes),
	}

	if !client.AllowsGrantType(grantType) {
		return nil, oauth.ErrNotFound
	}
	if mustValidateSecret && !client.Public() {
		if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(secret)) != 1 {
			return nil, oauth.ErrNotFound
		}
	}
	return client, nil
}
