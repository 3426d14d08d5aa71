package oauth

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when an entity does not exist.
// Already-consumed codes and tokens report it too, so a second redemption is
// indistinguishable from a missing one.
var ErrNotFound = errors.New("not found")

// ClientRepository looks up registered applications. Registration itself
// happens out-of-band; the engine never writes clients.
type ClientRepository interface {
	// FindClient returns the client identified by clientID when grantType is
	// permitted for it. When mustValidateSecret is set the stored secret must
	// match; confidential clients always require a matching secret.
	FindClient(ctx context.Context, clientID, grantType, secret string, mustValidateSecret bool) (*Client, error)
}

// ScopeRepository resolves scope identifiers against the catalog and applies
// per-client narrowing policy.
type ScopeRepository interface {
	// ListScopes resolves ids to scopes, failing with invalid_scope when any
	// identifier is outside the catalog.
	ListScopes(ctx context.Context, ids []string) ([]Scope, error)
	// FinalizeScopes may drop scopes the client is not permitted to hold for
	// the given grant. It never adds scopes the client did not request.
	FinalizeScopes(ctx context.Context, scopes []Scope, grantType string, client *Client, userID string) ([]Scope, error)
}

// AuthCodeRepository persists authorization codes. ConsumeAuthCode must mark
// the code revoked in the same storage operation that reads it: two
// concurrent redemptions of one code may land on different server instances,
// so at-most-once cannot be enforced in process memory.
type AuthCodeRepository interface {
	CreateAuthCode(ctx context.Context, code *AuthorizationCode) error
	ConsumeAuthCode(ctx context.Context, id string) (*AuthorizationCode, error)
	RevokeAuthCode(ctx context.Context, id string) error
	IsAuthCodeRevoked(ctx context.Context, id string) (bool, error)
}

// AccessTokenRepository persists access tokens.
type AccessTokenRepository interface {
	CreateAccessToken(ctx context.Context, token *AccessToken) error
	GetAccessToken(ctx context.Context, id string) (*AccessToken, error)
	RevokeAccessToken(ctx context.Context, id string) error
	IsAccessTokenRevoked(ctx context.Context, id string) (bool, error)
}

// RefreshTokenRepository persists refresh tokens. ConsumeRefreshToken has the
// same atomicity contract as AuthCodeRepository.ConsumeAuthCode.
type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	ConsumeRefreshToken(ctx context.Context, id string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	IsRefreshTokenRevoked(ctx context.Context, id string) (bool, error)
}

// Repositories bundles the five contracts a grant engine depends on.
type Repositories struct {
	Clients       ClientRepository
	Scopes        ScopeRepository
	AuthCodes     AuthCodeRepository
	AccessTokens  AccessTokenRepository
	RefreshTokens RefreshTokenRepository
}

// CatalogScopeRepository is the default ScopeRepository: a static catalog
// with no per-client narrowing beyond what the client requested.
type CatalogScopeRepository struct {
	catalog *ScopeCatalog
}

func NewCatalogScopeRepository(catalog *ScopeCatalog) *CatalogScopeRepository {
	return &CatalogScopeRepository{catalog: catalog}
}

func (r *CatalogScopeRepository) ListScopes(ctx context.Context, ids []string) ([]Scope, error) {
	return r.catalog.Lookup(ids)
}

func (r *CatalogScopeRepository) FinalizeScopes(ctx context.Context, scopes []Scope, grantType string, client *Client, userID string) ([]Scope, error) {
	return scopes, nil
}
