package repository

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/opensource-finance/credivist/internal/domain"
)

func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return pingOrClose(db, "postgres")
}

// postgresDSN builds a postgres:// URL, filling host, port, database and
// sslmode defaults. Credentials are escaped by url.UserPassword.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host, port, name, ssl := cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB, cfg.PostgresSSLMode
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 5432
	}
	if name == "" {
		name = "credivist"
	}
	if ssl == "" {
		ssl = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {ssl}}.Encode(),
	}
	if cfg.PostgresUser != "" {
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	}
	return u.String()
}
