package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/redis/go-redis/v9"
)

type authCodeRow struct {
	Code        string    `redis:"code"`
	ClientID    string    `redis:"client_id"`
	UserID      string    `redis:"user_id"`
	RedirectURI string    `redis:"redirect_uri"`
	Scopes      string    `redis:"scopes"` // space-separated
	ExpiresAt   time.Time `redis:"expires_at"`
	Revoked     bool      `redis:"revoked"`
}

type authCodeRepository struct {
	rdb redis.UniversalClient
}

func NewAuthCodeRepository(rdb redis.UniversalClient) oauth.AuthCodeRepository {
	return &authCodeRepository{rdb: rdb}
}

func (r *authCodeRepository) key(id string) string {
	return params.AuthCodeKeyPrefix + id
}

func (r *authCodeRepository) CreateAuthCode(ctx context.Context, code *oauth.AuthorizationCode) error {
	row := authCodeRow{
		Code:        code.ID,
		ClientID:    code.ClientID,
		UserID:      code.UserID,
		RedirectURI: code.RedirectURI,
		Scopes:      strings.Join(code.Scopes, " "),
		ExpiresAt:   code.ExpiresAt,
		Revoked:     code.Revoked,
	}
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.key(code.ID), row)
	pipe.ExpireAt(ctx, r.key(code.ID), code.ExpiresAt)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *authCodeRepository) ConsumeAuthCode(ctx context.Context, id string) (*oauth.AuthorizationCode, error) {
	consumed, err := consumeScript.Run(ctx, r.rdb, []string{r.key(id)}).Int()
	if err != nil {
		return nil, err
	}
	if consumed == 0 {
		return nil, oauth.ErrNotFound
	}

	var row authCodeRow
	if err := r.rdb.HGetAll(ctx, r.key(id)).Scan(&row); err != nil {
		return nil, err
	}
	return &oauth.AuthorizationCode{
		ID:          row.Code,
		ClientID:    row.ClientID,
		UserID:      row.UserID,
		RedirectURI: row.RedirectURI,
		Scopes:      strings.Fields(row.Scopes),
		ExpiresAt:   row.ExpiresAt,
		Revoked:     true,
	}, nil
}

func (r *authCodeRepository) RevokeAuthCode(ctx context.Context, id string) error {
	return r.rdb.HSet(ctx, r.key(id), "revoked", true).Err()
}

func (r *authCodeRepository) IsAuthCodeRevoked(ctx context.Context, id string) (bool, error) {
	revoked, err := r.rdb.HGet(ctx, r.key(id), "revoked").Bool()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return revoked, nil
}
