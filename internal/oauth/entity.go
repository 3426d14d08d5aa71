package oauth

import "time"

// Client is a registered third-party application. Clients are provisioned
// out-of-band; the engine only ever reads them.
type Client struct {
	ID           string
	Secret       string // empty for public clients
	Name         string
	RedirectURIs []string
	GrantTypes   []string // grant types this client may use; empty means all enabled grants
}

// Public reports whether the client is unable to hold a secret.
func (c *Client) Public() bool {
	return c.Secret == ""
}

// AllowsRedirectURI reports whether uri is in the client's registered set.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	if len(c.GrantTypes) == 0 {
		return true
	}
	for _, gt := range c.GrantTypes {
		if gt == grantType {
			return true
		}
	}
	return false
}

// Scope is a named permission from the static catalog.
type Scope struct {
	ID          string
	Description string
}

// AuthorizationCode is a short-lived, single-use proof of user consent.
type AuthorizationCode struct {
	ID          string
	ClientID    string
	UserID      string
	RedirectURI string
	Scopes      []string
	ExpiresAt   time.Time
	Revoked     bool
}

// Expired reports whether the code's lifetime has elapsed at now.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AccessToken is an opaque bearer credential. UserID is empty for tokens
// issued through the client-credentials grant.
type AccessToken struct {
	ID        string
	ClientID  string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
	Revoked   bool
}

func (t *AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RefreshToken renews exactly one access-token lineage. Using it revokes both
// it and its access token and mints a replacement pair.
type RefreshToken struct {
	ID            string
	AccessTokenID string
	ExpiresAt     time.Time
	Revoked       bool
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
