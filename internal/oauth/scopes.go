package oauth

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultScopeCatalog maps every scope the platform knows about to its
// human-readable label. The catalog is fixed at deploy time; identifiers
// outside it are rejected, never silently dropped.
var DefaultScopeCatalog = map[string]string{
	"preference:read":  "Read preferences",
	"preference:write": "Write preferences",
	"email:read":       "Read email address",
	"challenge:read":   "Read incoming challenges",
	"challenge:write":  "Create, accept, decline challenges",
	"study:read":       "Read private studies and broadcasts",
	"study:write":      "Create, update, delete studies and broadcasts",
	"tournament:write": "Create tournaments",
	"team:write":       "Join, leave, and manage teams",
	"msg:write":        "Send private messages to other players",
	"bot:play":         "Play games with the bot API",
	"board:play":       "Play games with the board API",
	"puzzle:read":      "Read puzzle activity",
	"game:read":        "Download all games", // deprecated
}

var scopeIDPattern = regexp.MustCompile(`^[a-z]+(:[a-z]+)?$`)

// ScopeCatalog is the static set of permissions clients may request.
type ScopeCatalog struct {
	labels map[string]string
}

// NewScopeCatalog validates the identifier-to-label mapping and returns a
// catalog. Malformed or empty identifiers are configuration errors.
func NewScopeCatalog(labels map[string]string) (*ScopeCatalog, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("scope catalog is empty")
	}
	for id := range labels {
		if !scopeIDPattern.MatchString(id) {
			return nil, fmt.Errorf("malformed scope identifier %q", id)
		}
	}
	copied := make(map[string]string, len(labels))
	for id, label := range labels {
		copied[id] = label
	}
	return &ScopeCatalog{labels: copied}, nil
}

// Lookup resolves each requested identifier against the catalog. Any unknown
// identifier fails the whole request with invalid_scope.
func (c *ScopeCatalog) Lookup(ids []string) ([]Scope, error) {
	scopes := make([]Scope, 0, len(ids))
	for _, id := range ids {
		label, ok := c.labels[id]
		if !ok {
			return nil, ErrInvalidScope.WithDescription(fmt.Sprintf("unknown scope %q", id))
		}
		scopes = append(scopes, Scope{ID: id, Description: label})
	}
	return scopes, nil
}

// Label returns the friendly name for a scope, falling back to the raw
// identifier for entries without one.
func (c *ScopeCatalog) Label(id string) string {
	if label, ok := c.labels[id]; ok && label != "" {
		return label
	}
	return id
}

// IDs returns the catalog's identifiers in sorted order.
func (c *ScopeCatalog) IDs() []string {
	ids := make([]string, 0, len(c.labels))
	for id := range c.labels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func scopeIDs(scopes []Scope) []string {
	ids := make([]string, len(scopes))
	for i, s := range scopes {
		ids[i] = s.ID
	}
	return ids
}

func containsScope(ids []string, id string) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}

// subsetOf reports whether every identifier in ids is present in allowed.
func subsetOf(ids, allowed []string) bool {
	for _, id := range ids {
		if !containsScope(allowed, id) {
			return false
		}
	}
	return true
}
