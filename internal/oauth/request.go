package oauth

import (
	"context"
	"net/url"
	"strings"
)

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"

	ResponseTypeCode = "code"
)

// AuthorizeParams are the raw query parameters of a GET or POST /authorize
// request. The bridge re-validates them on both legs of the consent flow, so
// the service never has to keep the validated request in memory between the
// two.
type AuthorizeParams struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
}

// AuthorizeRequest is a validated authorization transaction awaiting the
// resource owner's decision.
type AuthorizeRequest struct {
	Client      *Client
	RedirectURI string
	Scopes      []Scope
	State       string

	// Filled in by the bridge after the consent step.
	UserID   string
	Approved bool
}

// ValidateAuthorizationRequest checks an incoming authorization request
// against the client registry and the scope catalog. Protocol violations are
// reported as *Error; anything else is a dependency failure.
func (s *Server) ValidateAuthorizationRequest(ctx context.Context, p AuthorizeParams) (*AuthorizeRequest, error) {
	if p.ClientID == "" {
		return nil, ErrInvalidRequest.WithDescription("client_id is required")
	}

	client, err := s.repos.Clients.FindClient(ctx, p.ClientID, GrantTypeAuthorizationCode, "", false)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	redirectURI := p.RedirectURI
	if redirectURI == "" {
		if len(client.RedirectURIs) != 1 {
			return nil, ErrInvalidRequest.WithDescription("redirect_uri is required")
		}
		redirectURI = client.RedirectURIs[0]
	} else {
		if _, err := url.ParseRequestURI(redirectURI); err != nil {
			return nil, ErrInvalidRequest.WithDescription("redirect_uri is malformed")
		}
		if !client.AllowsRedirectURI(redirectURI) {
			return nil, ErrInvalidRequest.WithDescription("redirect_uri is not registered for this client")
		}
	}

	if p.ResponseType != ResponseTypeCode {
		return nil, ErrUnsupportedResponseType.WithDescription(`response_type must be "code"`)
	}

	scopes, err := s.repos.Scopes.ListScopes(ctx, splitScopeParam(p.Scope))
	if err != nil {
		return nil, err
	}

	return &AuthorizeRequest{
		Client:      client,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		State:       p.State,
	}, nil
}

func splitScopeParam(scope string) []string {
	return strings.Fields(scope)
}

// TokenRequest carries the form fields of a POST /token call.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	RefreshToken string
	Scope        string
}
