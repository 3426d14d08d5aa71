package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/chesszebra/lidraughts-oauth-server/internal/authcheck"
	"github.com/chesszebra/lidraughts-oauth-server/internal/middlewares"
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/internal/storage/redisstore"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rickb777/period"
)

const (
	testLoginURL   = "https://lidraughts.org/login?referrer=%s"
	testCookieName = "lidraughts2"
)

// staticProbe accepts exactly one session token and maps it to a fixed user.
type staticProbe struct{}

func (p staticProbe) Verify(ctx context.Context, sessionToken string) (*authcheck.UserIdentity, error) {
	if sessionToken != "valid-session" {
		return nil, authcheck.ErrUnauthenticated
	}
	return &authcheck.UserIdentity{ID: "thibault", Username: "Thibault"}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	catalog, err := oauth.NewScopeCatalog(oauth.DefaultScopeCatalog)
	if err != nil {
		t.Fatalf("NewScopeCatalog: %v", err)
	}
	repos := redisstore.New(rdb, catalog)

	type clientSaver interface {
		SaveClient(ctx context.Context, client *oauth.Client) error
	}
	err = repos.Clients.(clientSaver).SaveClient(context.Background(), &oauth.Client{
		ID:           "app1",
		Name:         "Example App",
		RedirectURIs: []string{"https://example.com/cb"},
	})
	if err != nil {
		t.Fatalf("SaveClient: %v", err)
	}

	parsePeriod := func(s string) period.Period {
		p, err := period.Parse(s)
		if err != nil {
			t.Fatalf("period.Parse(%q): %v", s, err)
		}
		return p
	}
	server := oauth.NewServer(repos, oauth.TTLPolicy{
		AuthCode:     parsePeriod("PT10M"),
		AccessToken:  parsePeriod("P20Y"),
		RefreshToken: parsePeriod("P20Y"),
	}, []byte("0123456789abcdef0123456789abcdef"), oauth.GrantConfig{
		AuthorizationCode: true,
		RefreshToken:      true,
	})

	engine := html.New("../../../templates", ".html")
	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: middlewares.ErrorHandler,
	})

	app.Use(middlewares.InjectGlobalVars(fiber.Map{"siteName": "lidraughts.org"}))

	authorizeHandler := NewAuthorizeHandler(server, staticProbe{}, catalog, testLoginURL, testCookieName)
	tokenHandler := NewTokenHandler(server)
	app.Get("/authorize", authorizeHandler.GetAuthorize)
	app.Post("/authorize", authorizeHandler.PostAuthorize)
	app.Post("/token", tokenHandler.PostToken)
	return app
}

func authorizeURL() string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {"app1"},
		"redirect_uri":  {"https://example.com/cb"},
		"scope":         {"email:read preference:read"},
		"state":         {"xyz"},
	}
	return "/authorize?" + q.Encode()
}

func TestGetAuthorizeRedirectsAnonymousToLogin(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, authorizeURL(), nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, "https://lidraughts.org/login?referrer=") {
		t.Errorf("location = %q", location)
	}
	if !strings.Contains(location, url.QueryEscape("/authorize")) {
		t.Errorf("location %q does not carry the original URL as referrer", location)
	}
}

var consentStatePattern = regexp.MustCompile(`name="consent_state" value="([^"]+)"`)

func fetchConsentPage(t *testing.T, app *fiber.App) (body, consentState string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, authorizeURL(), nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "valid-session"})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	body = string(raw)
	m := consentStatePattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("consent page carries no consent_state field")
	}
	return body, m[1]
}

func postConsent(t *testing.T, app *fiber.App, consentState string, approve bool) *http.Response {
	t.Helper()
	form := url.Values{
		"response_type": {"code"},
		"client_id":     {"app1"},
		"redirect_uri":  {"https://example.com/cb"},
		"scope":         {"email:read preference:read"},
		"state":         {"xyz"},
		"consent_state": {consentState},
	}
	if approve {
		form.Set("authorize", "1")
	}
	req := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "valid-session"})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func TestConsentPageContents(t *testing.T) {
	app := newTestApp(t)
	body, _ := fetchConsentPage(t, app)

	for _, want := range []string{"Example App", "Thibault", "Read email address", "Read preferences", "https://example.com/cb", "lidraughts.org"} {
		if !strings.Contains(body, want) {
			t.Errorf("consent page missing %q", want)
		}
	}
}

func TestAuthorizationCodeFlowEndToEnd(t *testing.T) {
	app := newTestApp(t)
	_, consentState := fetchConsentPage(t, app)

	resp := postConsent(t, app, consentState, true)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("consent status = %d, want 302", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect %q: %v", resp.Header.Get("Location"), err)
	}
	if location.Host != "example.com" {
		t.Fatalf("redirect host = %q", location.Host)
	}
	code := location.Query().Get("code")
	if code == "" {
		t.Fatal("redirect carries no code")
	}
	if location.Query().Get("state") != "xyz" {
		t.Errorf("state = %q, want xyz", location.Query().Get("state"))
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {"app1"},
		"code":         {code},
		"redirect_uri": {"https://example.com/cb"},
	}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokenResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if tokenResp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d, want 200", tokenResp.StatusCode)
	}
	if cc := tokenResp.Header.Get(fiber.HeaderCacheControl); cc != "no-store" {
		t.Errorf("cache-control = %q, want no-store", cc)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	tokenResp.Body.Close()
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.TokenType != "Bearer" {
		t.Errorf("token_type = %q", payload.TokenType)
	}

	// Burn the code a second time.
	req = httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	replay, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if replay.StatusCode != http.StatusBadRequest {
		t.Errorf("replay status = %d, want 400", replay.StatusCode)
	}
	var oauthErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(replay.Body).Decode(&oauthErr); err != nil {
		t.Fatalf("decode replay response: %v", err)
	}
	replay.Body.Close()
	if oauthErr.Error != "invalid_grant" {
		t.Errorf("replay error = %q, want invalid_grant", oauthErr.Error)
	}
}

func TestDenialRedirectsWithAccessDenied(t *testing.T) {
	app := newTestApp(t)
	_, consentState := fetchConsentPage(t, app)

	resp := postConsent(t, app, consentState, false)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	if location.Query().Get("error") != "access_denied" {
		t.Errorf("error = %q, want access_denied", location.Query().Get("error"))
	}
	if location.Query().Get("state") != "xyz" {
		t.Errorf("state = %q, want xyz", location.Query().Get("state"))
	}
	if location.Query().Get("code") != "" {
		t.Error("denial redirect carries a code")
	}
}

func TestTamperedConsentStateRejected(t *testing.T) {
	app := newTestApp(t)
	_, consentState := fetchConsentPage(t, app)

	form := url.Values{
		"response_type": {"code"},
		"client_id":     {"app1"},
		"redirect_uri":  {"https://example.com/cb"},
		"scope":         {"email:read preference:read msg:write"}, // widened after consent
		"state":         {"xyz"},
		"consent_state": {consentState},
		"authorize":     {"1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/authorize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "valid-session"})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetAuthorizeUnknownClient(t *testing.T) {
	app := newTestApp(t)

	q := url.Values{
		"response_type": {"code"},
		"client_id":     {"ghost"},
	}
	req := httptest.NewRequest(http.MethodGet, "/authorize?"+q.Encode(), nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "valid-session"})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPostTokenUnsupportedGrant(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"grant_type": {"password"}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestParseBasicAuth(t *testing.T) {
	id, secret, ok := parseBasicAuth("Basic YXBwMTpzM2NyZXQ=") // app1:s3cret
	if !ok || id != "app1" || secret != "s3cret" {
		t.Errorf("got %q %q %v", id, secret, ok)
	}
	if _, _, ok := parseBasicAuth("Bearer abc"); ok {
		t.Error("non-basic header accepted")
	}
	if _, _, ok := parseBasicAuth("Basic !!!"); ok {
		t.Error("invalid base64 accepted")
	}
}
