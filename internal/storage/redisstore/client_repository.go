package redisstore

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/redis/go-redis/v9"
)

type clientRow struct {
	ClientID     string `redis:"client_id"`
	Secret       string `redis:"secret"`
	Name         string `redis:"name"`
	RedirectURIs string `redis:"redirect_uris"` // space-separated
	GrantTypes   string `redis:"grant_types"`   // space-separated
}

type clientRepository struct {
	rdb redis.UniversalClient
}

func NewClientRepository(rdb redis.UniversalClient) oauth.ClientRepository {
	return &clientRepository{rdb: rdb}
}

func (r *clientRepository) FindClient(ctx context.Context, clientID, grantType, secret string, mustValidateSecret bool) (*oauth.Client, error) {
	cmd := r.rdb.HGetAll(ctx, params.ClientKeyPrefix+clientID)
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		return nil, oauth.ErrNotFound
	}
	var row clientRow
	if err := cmd.Scan(&row); err != nil {
		return nil, err
	}

	client := &oauth.Client{
		ID:           row.ClientID,
		Secret:       row.Secret,
		Name:         row.Name,
		RedirectURIs: strings.Fields(row.RedirectURIs),
		GrantTypes:   strings.Fields(row.GrantTypes),
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

// SaveClient provisions a client row. Registration is an operator action, not
// part of the authorization flow; this is used by tooling and tests.
func (r *clientRepository) SaveClient(ctx context.Context, client *oauth.Client) error {
	row := clientRow{
		ClientID:     client.ID,
		Secret:       client.Secret,
		Name:         client.Name,
		RedirectURIs: strings.Join(client.RedirectURIs, " "),
		GrantTypes:   strings.Join(client.GrantTypes, " "),
	}
	return r.rdb.HSet(ctx, params.ClientKeyPrefix+client.ID, row).Err()
}
