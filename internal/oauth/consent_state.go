package oauth

import (
	"strings"

	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/golang-jwt/jwt/v5"
)

// consentClaims pins the validated authorization request into the consent
// form. The POST leg re-validates the raw parameters from scratch; the signed
// state additionally proves the submitted parameters are the ones the user
// actually saw, and bounds how long a consent page stays submittable.
type consentClaims struct {
	ClientID    string `json:"cid"`
	RedirectURI string `json:"uri"`
	Scope       string `json:"scp"`
	State       string `json:"st"`
	jwt.RegisteredClaims
}

// ConsentState signs the validated request for embedding in the consent form.
func (s *Server) ConsentState(req *AuthorizeRequest) (string, error) {
	now := s.now()
	claims := consentClaims{
		ClientID:    req.Client.ID,
		RedirectURI: req.RedirectURI,
		Scope:       strings.Join(scopeIDs(req.Scopes), " "),
		State:       req.State,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(params.ConsentStateTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signKey)
}

// VerifyConsentState checks the signed state against the re-submitted
// parameters. Any mismatch or an expired or forged state fails the request.
func (s *Server) VerifyConsentState(state string, p AuthorizeParams) error {
	var claims consentClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidRequest.WithDescription("unexpected consent state signing method")
		}
		return s.signKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return ErrInvalidRequest.WithDescription("consent state is invalid or expired")
	}
	if claims.ClientID != p.ClientID || claims.RedirectURI != p.RedirectURI ||
		claims.Scope != strings.Join(splitScopeParam(p.Scope), " ") || claims.State != p.State {
		return ErrInvalidRequest.WithDescription("consent state does not match the submitted request")
	}
	return nil
}
