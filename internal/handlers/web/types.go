package web

import (
	"context"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
)

// AuthorizationServer is the façade the handlers drive. The two /authorize
// legs share ValidateAuthorizationRequest so the POST never trusts form state
// it cannot re-derive.
type AuthorizationServer interface {
	ValidateAuthorizationRequest(ctx context.Context, p oauth.AuthorizeParams) (*oauth.AuthorizeRequest, error)
	CompleteAuthorizationRequest(ctx context.Context, req *oauth.AuthorizeRequest) (string, error)
	RespondToTokenRequest(ctx context.Context, req *oauth.TokenRequest) (*oauth.TokenResponse, error)
	ConsentState(req *oauth.AuthorizeRequest) (string, error)
	VerifyConsentState(state string, p oauth.AuthorizeParams) error
}
