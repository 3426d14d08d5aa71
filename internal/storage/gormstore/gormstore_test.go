package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func clientRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "client_id", "secret", "name", "redirect_uris", "grant_types",
		"created_at", "updated_at", "deleted_at",
	})
}

func TestFindClient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT .* FROM `clients` WHERE client_id = .*").
		WithArgs("app1", 1).
		WillReturnRows(clientRows().AddRow(
			1, "app1", "s3cret", "Example App",
			"https://example.com/cb https://example.com/alt", "",
			time.Now(), time.Now(), nil,
		))

	client, err := repo.FindClient(ctx, "app1", oauth.GrantTypeAuthorizationCode, "s3cret", true)
	if err != nil {
		t.Fatalf("FindClient: %v", err)
	}
	if client.ID != "app1" || client.Name != "Example App" {
		t.Errorf("client = %+v", client)
	}
	if len(client.RedirectURIs) != 2 {
		t.Errorf("redirect uris = %v, want 2 entries", client.RedirectURIs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindClientWrongSecret(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("SELECT .* FROM `clients` WHERE client_id = .*").
		WithArgs("app1", 1).
		WillReturnRows(clientRows().AddRow(
			1, "app1", "s3cret", "Example App", "https://example.com/cb", "",
			time.Now(), time.Now(), nil,
		))

	_, err := repo.FindClient(context.Background(), "app1", oauth.GrantTypeAuthorizationCode, "wrong", true)
	if err != oauth.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFindClientDisallowedGrantType(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("SELECT .* FROM `clients` WHERE client_id = .*").
		WithArgs("app1", 1).
		WillReturnRows(clientRows().AddRow(
			1, "app1", "", "Example App", "https://example.com/cb", "authorization_code refresh_token",
			time.Now(), time.Now(), nil,
		))

	_, err := repo.FindClient(context.Background(), "app1", oauth.GrantTypeClientCredentials, "", true)
	if err != oauth.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFindClientUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewClientRepository(db)

	mock.ExpectQuery("SELECT .* FROM `clients` WHERE client_id = .*").
		WithArgs("nope", 1).
		WillReturnRows(clientRows())

	_, err := repo.FindClient(context.Background(), "nope", oauth.GrantTypeAuthorizationCode, "", false)
	if err != oauth.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestConsumeAuthCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthCodeRepository(db)
	expires := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	mock.ExpectExec("UPDATE `auth_codes` SET .*revoked.*WHERE \\(code = \\? AND revoked = \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `auth_codes` WHERE code = .*").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "client_id", "user_id", "redirect_uri", "scopes",
			"expires_at", "revoked", "created_at", "updated_at", "deleted_at",
		}).AddRow(
			1, "abc", "app1", "thibault", "https://example.com/cb", "email:read",
			expires, true, time.Now(), time.Now(), nil,
		))

	code, err := repo.ConsumeAuthCode(context.Background(), "abc")
	if err != nil {
		t.Fatalf("ConsumeAuthCode: %v", err)
	}
	if code.ClientID != "app1" || code.UserID != "thibault" {
		t.Errorf("code = %+v", code)
	}
	if len(code.Scopes) != 1 || code.Scopes[0] != "email:read" {
		t.Errorf("scopes = %v", code.Scopes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConsumeAuthCodeAlreadyRedeemed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthCodeRepository(db)

	// Zero affected rows: the code is missing, expired out of the table or
	// already consumed. All of these read the same to the caller.
	mock.ExpectExec("UPDATE `auth_codes` SET .*revoked.*WHERE \\(code = \\? AND revoked = \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ConsumeAuthCode(context.Background(), "abc")
	if err != oauth.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConsumeRefreshToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	mock.ExpectExec("UPDATE `refresh_tokens` SET .*revoked.*WHERE \\(token = \\? AND revoked = \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM `refresh_tokens` WHERE token = .*").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token", "access_token", "expires_at", "revoked", "created_at", "updated_at", "deleted_at",
		}).AddRow(1, "rt1", "at1", expires, true, time.Now(), time.Now(), nil))

	token, err := repo.ConsumeRefreshToken(context.Background(), "rt1")
	if err != nil {
		t.Fatalf("ConsumeRefreshToken: %v", err)
	}
	if token.AccessTokenID != "at1" || !token.Revoked {
		t.Errorf("token = %+v", token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConsumeRefreshTokenAlreadyRotated(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("UPDATE `refresh_tokens` SET .*revoked.*WHERE \\(token = \\? AND revoked = \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ConsumeRefreshToken(context.Background(), "rt1")
	if err != oauth.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateAccessToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccessTokenRepository(db)

	mock.ExpectExec("INSERT INTO `access_tokens`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateAccessToken(context.Background(), &oauth.AccessToken{
		ID:        "at1",
		ClientID:  "app1",
		UserID:    "thibault",
		Scopes:    []string{"email:read", "preference:read"},
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIsAccessTokenRevokedUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccessTokenRepository(db)

	mock.ExpectQuery("SELECT .* FROM `access_tokens` WHERE token = .*").
		WillReturnRows(sqlmock.NewRows([]string{"revoked"}))

	revoked, err := repo.IsAccessTokenRevoked(context.Background(), "missing")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("unknown token must read as revoked")
	}
}
