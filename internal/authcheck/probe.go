// Package authcheck verifies platform session cookies against the central
// site's account-info endpoint. The OAuth server has no login system of its
// own: possession of a valid platform session is the only proof of identity.
package authcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chesszebra/lidraughts-oauth-server/params"
)

// ErrUnauthenticated is returned when the session credential is missing,
// rejected by the platform, or cannot be verified.
var ErrUnauthenticated = errors.New("session not authenticated")

// UserIdentity is the verified account behind a session cookie.
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthenticationProbe checks a session credential with an external authority.
type AuthenticationProbe interface {
	Verify(ctx context.Context, sessionToken string) (*UserIdentity, error)
}

// RemoteProbe verifies sessions by forwarding the cookie to the platform's
// account-info URL. Any transport failure, non-JSON body, or body carrying an
// error key counts as unauthenticated.
type RemoteProbe struct {
	checkURL   string
	cookieName string
	client     *http.Client
}

func NewRemoteProbe(checkURL, cookieName string) *RemoteProbe {
	return &RemoteProbe{
		checkURL:   checkURL,
		cookieName: cookieName,
		client:     &http.Client{Timeout: params.RemoteAuthTimeout},
	}
}

func (p *RemoteProbe) Verify(ctx context.Context, sessionToken string) (*UserIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.checkURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.lichess.v3+json")
	req.Header.Set("User-Agent", "chesszebra/lidraughts-oauth-server")
	req.AddCookie(&http.Cookie{Name: p.cookieName, Value: sessionToken})

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	defer resp.Body.Close()

	var body struct {
		UserIdentity
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ErrUnauthenticated
	}
	if body.Error != "" || body.ID == "" {
		return nil, ErrUnauthenticated
	}
	return &UserIdentity{ID: body.ID, Username: body.Username}, nil
}
