// Package gormstore implements the repository contracts on a relational
// database through gorm. Single-use semantics are enforced with conditional
// updates: the consuming statement only matches unrevoked rows, so exactly
// one of any number of concurrent redeemers sees an affected row.
package gormstore

import (
	"errors"
	"strings"

	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// New returns the full repository set backed by db. The scope repository is
// catalog-backed and lives in the oauth package.
func New(db *gorm.DB, catalog *oauth.ScopeCatalog) oauth.Repositories {
	return oauth.Repositories{
		Clients:       NewClientRepository(db),
		Scopes:        oauth.NewCatalogScopeRepository(catalog),
		AuthCodes:     NewAuthCodeRepository(db),
		AccessTokens:  NewAccessTokenRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

func joinFields(fields []string) string {
	return strings.Join(fields, " ")
}

func splitFields(joined string) []string {
	return strings.Fields(joined)
}

// isDuplicateKey reports a MySQL 1062 unique-index violation.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
