package oauth

import (
	"context"
	"net/url"

	"github.com/chesszebra/lidraughts-oauth-server/internal/common"
	"github.com/chesszebra/lidraughts-oauth-server/params"
)

// AuthorizationCodeGrant implements the two-phase authorization-code flow:
// Complete turns an approved consent into a single-use code, Token redeems
// that code for a token pair.
type AuthorizationCodeGrant struct {
	server *Server
}

func (g *AuthorizationCodeGrant) GrantType() string {
	return GrantTypeAuthorizationCode
}

// Complete finishes a validated authorization request. A denial redirects
// back to the client with error=access_denied and persists nothing; an
// approval mints and stores an authorization code bound to the client, user,
// redirect URI and finalized scopes.
func (g *AuthorizationCodeGrant) Complete(ctx context.Context, req *AuthorizeRequest) (string, error) {
	if !req.Approved {
		return appendQuery(req.RedirectURI,
			"error", ErrAccessDenied.Code,
			"state", req.State,
		), nil
	}
	if req.UserID == "" {
		return "", ErrServerError.WithDescription("authorization request has no user attached")
	}

	s := g.server
	scopes, err := s.repos.Scopes.FinalizeScopes(ctx, req.Scopes, GrantTypeAuthorizationCode, req.Client, req.UserID)
	if err != nil {
		return "", err
	}

	codeID, err := common.GenerateSecret(params.TokenIdentifierLength)
	if err != nil {
		return "", err
	}
	code := &AuthorizationCode{
		ID:          codeID,
		ClientID:    req.Client.ID,
		UserID:      req.UserID,
		RedirectURI: req.RedirectURI,
		Scopes:      scopeIDs(scopes),
		ExpiresAt:   s.expiresAt(s.ttl.AuthCode),
	}
	if err := s.repos.AuthCodes.CreateAuthCode(ctx, code); err != nil {
		return "", err
	}

	return appendQuery(req.RedirectURI,
		"code", code.ID,
		"state", req.State,
	), nil
}

// Token redeems an authorization code. The code is revoked in the same
// storage operation that reads it, so a second redemption, however
// concurrent, fails with invalid_grant.
func (g *AuthorizationCodeGrant) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	s := g.server

	if req.ClientID == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.repos.Clients.FindClient(ctx, req.ClientID, GrantTypeAuthorizationCode, req.ClientSecret, true)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if req.Code == "" {
		return nil, ErrInvalidRequest.WithDescription("code is required")
	}

	code, err := s.repos.AuthCodes.ConsumeAuthCode(ctx, req.Code)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	// All binding violations collapse into the same invalid_grant: the
	// response must not reveal whether a code is expired, revoked or simply
	// not the caller's.
	if code.ClientID != client.ID || code.Expired(s.now()) || code.RedirectURI != req.RedirectURI {
		return nil, ErrInvalidGrant
	}

	withRefresh := s.engines[GrantTypeRefreshToken] != nil
	return s.issueTokenPair(ctx, client, code.UserID, code.Scopes, withRefresh)
}

func appendQuery(rawURL string, kv ...string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			query.Set(kv[i], kv[i+1])
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}
