package oauth

import "context"

// ClientCredentialsGrant issues tokens to a confidential client acting on its
// own behalf. It is wired only when enabled in configuration, which it is not
// by default.
type ClientCredentialsGrant struct {
	server *Server
}

func (g *ClientCredentialsGrant) GrantType() string {
	return GrantTypeClientCredentials
}

func (g *ClientCredentialsGrant) Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	s := g.server

	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.repos.Clients.FindClient(ctx, req.ClientID, GrantTypeClientCredentials, req.ClientSecret, true)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if client.Public() {
		return nil, ErrUnauthorizedClient.WithDescription("public clients cannot use client_credentials")
	}

	scopes, err := s.repos.Scopes.ListScopes(ctx, splitScopeParam(req.Scope))
	if err != nil {
		return nil, err
	}
	finalized, err := s.repos.Scopes.FinalizeScopes(ctx, scopes, GrantTypeClientCredentials, client, "")
	if err != nil {
		return nil, err
	}

	// No resource owner and no refresh token for machine tokens.
	return s.issueTokenPair(ctx, client, "", scopeIDs(finalized), false)
}
