package web

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/chesszebra/lidraughts-oauth-server/internal/audit"
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/gofiber/fiber/v2"
)

// TokenHandler serves POST /token, the code-for-token and refresh exchanges.
type TokenHandler struct {
	oauthServer AuthorizationServer
}

func NewTokenHandler(oauthServer AuthorizationServer) *TokenHandler {
	return &TokenHandler{oauthServer: oauthServer}
}

func (h *TokenHandler) PostToken(ctx *fiber.Ctx) error {
	req := &oauth.TokenRequest{
		GrantType:    ctx.FormValue("grant_type"),
		ClientID:     ctx.FormValue("client_id"),
		ClientSecret: ctx.FormValue("client_secret"),
		Code:         ctx.FormValue("code"),
		RedirectURI:  ctx.FormValue("redirect_uri"),
		RefreshToken: ctx.FormValue("refresh_token"),
		Scope:        ctx.FormValue("scope"),
	}

	// Client credentials may arrive as HTTP Basic instead of form fields.
	if req.ClientID == "" {
		if id, secret, ok := parseBasicAuth(ctx.Get(fiber.HeaderAuthorization)); ok {
			req.ClientID = id
			req.ClientSecret = secret
		}
	}

	resp, err := h.oauthServer.RespondToTokenRequest(ctx.Context(), req)
	if err != nil {
		// Dependency failures surface as a generic server_error here; the
		// token endpoint never leaks storage detail.
		return writeOAuthError(ctx, err)
	}

	if err := audit.RecordIssuance(ctx.Context(), audit.IssuanceRecord{
		ClientID:  req.ClientID,
		GrantType: req.GrantType,
		IP:        ctx.IP(),
	}); err != nil {
		slog.Error("failed to record issuance audit event", "error", err)
	}

	ctx.Set(fiber.HeaderCacheControl, "no-store")
	ctx.Set(fiber.HeaderPragma, "no-cache")
	return ctx.JSON(resp)
}

func parseBasicAuth(header string) (id, secret string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	id, secret, ok = strings.Cut(string(decoded), ":")
	return id, secret, ok
}
