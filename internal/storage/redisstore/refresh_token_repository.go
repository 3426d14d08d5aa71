package redisstore

import (
	"context"
	"time"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/redis/go-redis/v9"
)

type refreshTokenRow struct {
	Token       string    `redis:"token"`
	AccessToken string    `redis:"access_token"`
	ExpiresAt   time.Time `redis:"expires_at"`
	Revoked     bool      `redis:"revoked"`
}

type refreshTokenRepository struct {
	rdb redis.UniversalClient
}

func NewRefreshTokenRepository(rdb redis.UniversalClient) oauth.RefreshTokenRepository {
	return &refreshTokenRepository{rdb: rdb}
}

func (r *refreshTokenRepository) key(id string) string {
	return params.RefreshTokenKeyPrefix + id
}

func (r *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *oauth.RefreshToken) error {
	row := refreshTokenRow{
		Token:       token.ID,
		AccessToken: token.AccessTokenID,
		ExpiresAt:   token.ExpiresAt,
		Revoked:     token.Revoked,
	}
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.key(token.ID), row)
	pipe.ExpireAt(ctx, r.key(token.ID), token.ExpiresAt)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *refreshTokenRepository) ConsumeRefreshToken(ctx context.Context, id string) (*oauth.RefreshToken, error) {
	consumed, err := consumeScript.Run(ctx, r.rdb, []string{r.key(id)}).Int()
	if err != nil {
		return nil, err
	}
	if consumed == 0 {
		return nil, oauth.ErrNotFound
	}

	var row refreshTokenRow
	if err := r.rdb.HGetAll(ctx, r.key(id)).Scan(&row); err != nil {
		return nil, err
	}
	return &oauth.RefreshToken{
		ID:            row.Token,
		AccessTokenID: row.AccessToken,
		ExpiresAt:     row.ExpiresAt,
		Revoked:       true,
	}, nil
}

func (r *refreshTokenRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	return r.rdb.HSet(ctx, r.key(id), "revoked", true).Err()
}

func (r *refreshTokenRepository) IsRefreshTokenRevoked(ctx context.Context, id string) (bool, error) {
	revoked, err := r.rdb.HGet(ctx, r.key(id), "revoked").Bool()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return revoked, nil
}
