package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/chesszebra/lidraughts-oauth-server/internal/audit"
	"github.com/chesszebra/lidraughts-oauth-server/internal/authcheck"
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/gofiber/fiber/v2"
)

func scopeParamFields(scope string) []string {
	return strings.Fields(scope)
}

const identityLocalKey = "authcheck:identity"

// AuthorizeHandler bridges the platform session check and the authorization
// server's two-phase consent flow.
type AuthorizeHandler struct {
	oauthServer AuthorizationServer
	probe       authcheck.AuthenticationProbe
	catalog     *oauth.ScopeCatalog
	loginURL    string // template with a %s referrer slot
	cookieName  string
}

func NewAuthorizeHandler(oauthServer AuthorizationServer, probe authcheck.AuthenticationProbe, catalog *oauth.ScopeCatalog, loginURL, cookieName string) *AuthorizeHandler {
	return &AuthorizeHandler{
		oauthServer: oauthServer,
		probe:       probe,
		catalog:     catalog,
		loginURL:    loginURL,
		cookieName:  cookieName,
	}
}

// authenticate resolves the platform session cookie to a user identity,
// caching the result on the request. A nil identity means unauthenticated.
func (h *AuthorizeHandler) authenticate(ctx *fiber.Ctx) (*authcheck.UserIdentity, error) {
	if cached, ok := ctx.Locals(identityLocalKey).(*authcheck.UserIdentity); ok {
		return cached, nil
	}
	cookie := ctx.Cookies(h.cookieName)
	if cookie == "" {
		return nil, nil
	}
	identity, err := h.probe.Verify(ctx.Context(), cookie)
	if errors.Is(err, authcheck.ErrUnauthenticated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ctx.Locals(identityLocalKey, identity)
	return identity, nil
}

func (h *AuthorizeHandler) redirectToLogin(ctx *fiber.Ctx) error {
	referrer := ctx.BaseURL() + ctx.OriginalURL()
	return ctx.Redirect(fmt.Sprintf(h.loginURL, url.QueryEscape(referrer)))
}

func authorizeParams(ctx *fiber.Ctx) oauth.AuthorizeParams {
	// The POST leg re-submits the original query string, so both legs read
	// the same way.
	return oauth.AuthorizeParams{
		ResponseType: ctx.Query("response_type", ctx.FormValue("response_type")),
		ClientID:     ctx.Query("client_id", ctx.FormValue("client_id")),
		RedirectURI:  ctx.Query("redirect_uri", ctx.FormValue("redirect_uri")),
		Scope:        ctx.Query("scope", ctx.FormValue("scope")),
		State:        ctx.Query("state", ctx.FormValue("state")),
	}
}

func writeOAuthError(ctx *fiber.Ctx, err error) error {
	oauthErr := oauth.AsProtocolError(err)
	return ctx.Status(oauthErr.Status).JSON(oauthErr)
}

// GetAuthorize renders the consent page for an authenticated user, or
// redirects to the platform login with the current URL as referrer.
func (h *AuthorizeHandler) GetAuthorize(ctx *fiber.Ctx) error {
	identity, err := h.authenticate(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return h.redirectToLogin(ctx)
	}

	request, err := h.oauthServer.ValidateAuthorizationRequest(ctx.Context(), authorizeParams(ctx))
	if err != nil {
		var protocolErr *oauth.Error
		if errors.As(err, &protocolErr) {
			return writeOAuthError(ctx, protocolErr)
		}
		return err
	}

	state, err := h.oauthServer.ConsentState(request)
	if err != nil {
		return err
	}

	type scopeView struct {
		ID    string
		Label string
	}
	scopes := make([]scopeView, len(request.Scopes))
	for i, s := range request.Scopes {
		scopes[i] = scopeView{ID: s.ID, Label: h.catalog.Label(s.ID)}
	}

	siteName, _ := ctx.Locals("siteName").(string)
	return ctx.Render("authorize", fiber.Map{
		"siteName":        siteName,
		"applicationName": request.Client.Name,
		"redirectURI":     request.RedirectURI,
		"scopes":          scopes,
		"username":        identity.Username,
		"consentState":    state,
		"responseType":    oauth.ResponseTypeCode,
		"clientID":        request.Client.ID,
		"scope":           ctx.Query("scope"),
		"state":           request.State,
	})
}

// PostAuthorize collects the consent decision and resumes the authorization
// server. The request is validated again from the submitted parameters; the
// signed consent state only proves they are the ones the user saw.
func (h *AuthorizeHandler) PostAuthorize(ctx *fiber.Ctx) error {
	identity, err := h.authenticate(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return h.redirectToLogin(ctx)
	}

	p := authorizeParams(ctx)
	if err := h.oauthServer.VerifyConsentState(ctx.FormValue("consent_state"), p); err != nil {
		return writeOAuthError(ctx, err)
	}

	request, err := h.oauthServer.ValidateAuthorizationRequest(ctx.Context(), p)
	if err != nil {
		var protocolErr *oauth.Error
		if errors.As(err, &protocolErr) {
			return writeOAuthError(ctx, protocolErr)
		}
		return err
	}

	// Presence of the authorize field is the approval signal; anything else,
	// including a bare submit of the deny button, is a denial.
	request.Approved = ctx.FormValue("authorize") != ""
	request.UserID = identity.ID

	location, err := h.oauthServer.CompleteAuthorizationRequest(ctx.Context(), request)
	if err != nil {
		var protocolErr *oauth.Error
		if errors.As(err, &protocolErr) {
			return writeOAuthError(ctx, protocolErr)
		}
		return err
	}

	if err := audit.RecordConsent(ctx.Context(), audit.ConsentRecord{
		UserID:    identity.ID,
		ClientID:  request.Client.ID,
		Scopes:    scopeParamFields(p.Scope),
		Approved:  request.Approved,
		IP:        ctx.IP(),
		UserAgent: string(ctx.Request().Header.UserAgent()),
	}); err != nil {
		slog.Error("failed to record consent audit event", "error", err)
	}

	return ctx.Redirect(location)
}
