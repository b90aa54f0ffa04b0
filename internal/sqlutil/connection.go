package sqlutil

import (
	"database/sql"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voicewarden/voicewarden/setup/config"
)

// Open opens the sqlite database identified by the connection string in the
// given database options. The busy timeout keeps concurrent readers from
// tripping over the exclusive writer.
func Open(dbProperties *config.DatabaseOptions) (*sql.DB, error) {
	dsn, err := sqliteDSN(string(dbProperties.ConnectionString))
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite is single-writer, so there's no point opening more connections
	// than that. The configured values are ignored deliberately.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(dbProperties.ConnMaxLifetime())
	return db, nil
}

func sqliteDSN(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "file:")
	q := url.Values{}
	q.Set("_busy_timeout", "10000")
	q.Set("_txlock", "immediate")
	return "file:" + trimmed + "?" + q.Encode(), nil
}
