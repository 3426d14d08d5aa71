// Package redisstore implements the repository contracts on Redis. Each
// entity is a hash keyed by its wire identifier; lifetimes map to key TTLs so
// expired entries vanish on their own. Single-use consumption runs as a Lua
// script, which Redis executes atomically, so concurrent redeemers on
// different server instances cannot both win.
package redisstore

import (
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/redis/go-redis/v9"
)

// consumeScript flips revoked 0→1 and reports whether this caller was the
// one to do it. A missing key and an already-revoked key both report 0.
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'revoked') == '0' then
	redis.call('HSET', KEYS[1], 'revoked', '1')
	return 1
end
return 0
`)

// New returns the full repository set backed by rdb. The scope repository is
// catalog-backed and lives in the oauth package.
func New(rdb redis.UniversalClient, catalog *oauth.ScopeCatalog) oauth.Repositories {
	return oauth.Repositories{
		Clients:       NewClientRepository(rdb),
		Scopes:        oauth.NewCatalogScopeRepository(catalog),
		AuthCodes:     NewAuthCodeRepository(rdb),
		AccessTokens:  NewAccessTokenRepository(rdb),
		RefreshTokens: NewRefreshTokenRepository(rdb),
	}
}
