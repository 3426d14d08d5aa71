package oauth

import "context"

// RefreshTokenGrant rotates a refresh token: the presented token and its
// access token are revoked and a fresh pair is issued. Scopes may be narrowed
// on rotation, never widened.
type RefreshTokenGrant struct {
	server *Server
}

func (g *RefreshTokenGrant) GrantType() string {
	return GrantTypeRefreshToken
}

func (g *RefreshTokenGrant) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	s := g.server

	if req.ClientID == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.repos.Clients.FindClient(ctx, req.ClientID, GrantTypeRefreshToken, req.ClientSecret, true)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest.WithDescription("refresh_token is required")
	}

	// Consuming revokes the refresh token atomically; a concurrent second
	// rotation of the same token loses the race and gets invalid_grant.
	refresh, err := s.repos.RefreshTokens.ConsumeRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if refresh.Expired(s.now()) {
		return nil, ErrInvalidGrant
	}

	access, err := s.repos.AccessTokens.GetAccessToken(ctx, refresh.AccessTokenID)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if access.ClientID != client.ID {
		return nil, ErrInvalidGrant
	}

	scopes := access.Scopes
	if req.Scope != "" {
		requested := splitScopeParam(req.Scope)
		if !subsetOf(requested, access.Scopes) {
			return nil, ErrInvalidScope.WithDescription("requested scopes exceed those originally granted")
		}
		if _, err := s.repos.Scopes.ListScopes(ctx, requested); err != nil {
			return nil, err
		}
		scopes = requested
	}

	if err := s.repos.AccessTokens.RevokeAccessToken(ctx, access.ID); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, client, access.UserID, scopes, true)
}
