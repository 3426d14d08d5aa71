package redisstore

import (
	"context"
	"strings"
	"time"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/redis/go-redis/v9"
)

type accessTokenRow struct {
	Token     string    `redis:"token"`
	ClientID  string    `redis:"client_id"`
	UserID    string    `redis:"user_id"`
	Scopes    string    `redis:"scopes"` // space-separated
	ExpiresAt time.Time `redis:"expires_at"`
	Revoked   bool      `redis:"revoked"`
}

type accessTokenRepository struct {
	rdb redis.UniversalClient
}

func NewAccessTokenRepository(rdb redis.UniversalClient) oauth.AccessTokenRepository {
	return &accessTokenRepository{rdb: rdb}
}

func (r *accessTokenRepository) key(id string) string {
	return params.AccessTokenKeyPrefix + id
}

func (r *accessTokenRepository) CreateAccessToken(ctx context.Context, token *oauth.AccessToken) error {
	row := accessTokenRow{
		Token:     token.ID,
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		Scopes:    strings.Join(token.Scopes, " "),
		ExpiresAt: token.ExpiresAt,
		Revoked:   token.Revoked,
	}
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.key(token.ID), row)
	pipe.ExpireAt(ctx, r.key(token.ID), token.ExpiresAt)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *accessTokenRepository) GetAccessToken(ctx context.Context, id string) (*oauth.AccessToken, error) {
	cmd := r.rdb.HGetAll(ctx, r.key(id))
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		return nil, oauth.ErrNotFound
	}
	var row accessTokenRow
	if err := cmd.Scan(&row); err != nil {
		return nil, err
	}
	return &oauth.AccessToken{
		ID:        row.Token,
		ClientID:  row.ClientID,
		UserID:    row.UserID,
		Scopes:    strings.Fields(row.Scopes),
		ExpiresAt: row.ExpiresAt,
		Revoked:   row.Revoked,
	}, nil
}

func (r *accessTokenRepository) RevokeAccessToken(ctx context.Context, id string) error {
	return r.rdb.HSet(ctx, r.key(id), "revoked", true).Err()
}

func (r *accessTokenRepository) IsAccessTokenRevoked(ctx context.Context, id string) (bool, error) {
	revoked, err := r.rdb.HGet(ctx, r.key(id), "revoked").Bool()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return revoked, nil
}
