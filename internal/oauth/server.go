package oauth

import (
	"context"
	"time"

	"github.com/chesszebra/lidraughts-oauth-server/internal/common"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/rickb777/period"
)

// TTLPolicy is the configured lifetime per token kind. Lifetimes are
// calendar-aware ISO-8601 periods: P20Y means twenty calendar years, not a
// fixed second count.
type TTLPolicy struct {
	AuthCode     period.Period
	AccessToken  period.Period
	RefreshToken period.Period
}

// GrantConfig selects which grant types the server dispatches.
type GrantConfig struct {
	AuthorizationCode bool
	ClientCredentials bool
	RefreshToken      bool
}

// GrantEngine turns a token request into a token response for one grant type.
type GrantEngine interface {
	GrantType() string
	Token(ctx context.Context, req *TokenRequest) (*TokenResponse, error)
}

// Server is the authorization-server façade. It owns the signing key and the
// TTL policy and dispatches requests to the grant engine matching the
// grant_type parameter. It keeps no per-request state: everything durable
// lives behind the repositories.
type Server struct {
	repos    Repositories
	ttl      TTLPolicy
	signKey  []byte
	engines  map[string]GrantEngine
	authCode *AuthorizationCodeGrant
	now      func() time.Time
}

// NewServer wires the enabled grant engines. Disabled grants are absent from
// the dispatch table and fail with unsupported_grant_type.
func NewServer(repos Repositories, ttl TTLPolicy, signKey []byte, grants GrantConfig) *Server {
	s := &Server{
		repos:   repos,
		ttl:     ttl,
		signKey: signKey,
		engines: make(map[string]GrantEngine),
		now:     time.Now,
	}
	if grants.AuthorizationCode {
		s.authCode = &AuthorizationCodeGrant{server: s}
		s.engines[GrantTypeAuthorizationCode] = s.authCode
	}
	if grants.RefreshToken {
		s.engines[GrantTypeRefreshToken] = &RefreshTokenGrant{server: s}
	}
	if grants.ClientCredentials {
		s.engines[GrantTypeClientCredentials] = &ClientCredentialsGrant{server: s}
	}
	return s
}

// RespondToTokenRequest dispatches a POST /token request to the engine for
// its grant type.
func (s *Server) RespondToTokenRequest(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType == "" {
		return nil, ErrInvalidRequest.WithDescription("grant_type is required")
	}
	engine, ok := s.engines[req.GrantType]
	if !ok {
		return nil, ErrUnsupportedGrantType
	}
	return engine.Token(ctx, req)
}

// CompleteAuthorizationRequest resumes a validated authorization request
// after the consent step and returns the redirect URL to send the resource
// owner back to.
func (s *Server) CompleteAuthorizationRequest(ctx context.Context, req *AuthorizeRequest) (string, error) {
	if s.authCode == nil {
		return "", ErrUnsupportedResponseType.WithDescription("authorization_code grant is disabled")
	}
	return s.authCode.Complete(ctx, req)
}

func (s *Server) expiresAt(p period.Period) time.Time {
	t, _ := p.AddTo(s.now())
	return t
}

// issueTokenPair mints and persists an access/refresh token pair. Access
// token identifiers are opaque: the identifier itself is the bearer
// credential the resource server looks up.
func (s *Server) issueTokenPair(ctx context.Context, client *Client, userID string, scopes []string, withRefresh bool) (*TokenResponse, error) {
	accessID, err := common.GenerateSecret(params.TokenIdentifierLength)
	if err != nil {
		return nil, err
	}
	access := &AccessToken{
		ID:        accessID,
		ClientID:  client.ID,
		UserID:    userID,
		Scopes:    scopes,
		ExpiresAt: s.expiresAt(s.ttl.AccessToken),
	}
	if err := s.repos.AccessTokens.CreateAccessToken(ctx, access); err != nil {
		return nil, err
	}

	resp := &TokenResponse{
		AccessToken: access.ID,
		TokenType:   "Bearer",
		ExpiresIn:   int64(access.ExpiresAt.Sub(s.now()) / time.Second),
	}
	if !withRefresh {
		return resp, nil
	}

	refreshID, err := common.GenerateSecret(params.TokenIdentifierLength)
	if err != nil {
		return nil, err
	}
	refresh := &RefreshToken{
		ID:            refreshID,
		AccessTokenID: access.ID,
		ExpiresAt:     s.expiresAt(s.ttl.RefreshToken),
	}
	if err := s.repos.RefreshTokens.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}
	resp.RefreshToken = refresh.ID
	return resp, nil
}
