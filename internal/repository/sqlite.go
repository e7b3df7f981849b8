package repository

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/opensource-finance/credivist/internal/domain"
	_ "modernc.org/sqlite"
)

const defaultSQLitePath = "./credivist.db"

var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
}

func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = defaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	return pingOrClose(db, "sqlite")
}

// sqliteDSN appends the assessment store pragmas to a file path.
func sqliteDSN(path string) string {
	q := url.Values{"_pragma": sqlitePragmas}
	return "file:" + path + "?" + q.Encode()
}

func pingOrClose(db *sql.DB, driver string) (*sql.DB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}
	return db, nil
}
