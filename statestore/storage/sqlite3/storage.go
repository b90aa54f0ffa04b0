package sqlite3

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/voicewarden/voicewarden/internal/sqlutil"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore/storage"
	"github.com/voicewarden/voicewarden/statestore/types"
)

const (
	ownershipsDocKey    = "ownerships"
	memberConfigsDocKey = "member_configs"
)

// Database stores the two state documents in a sqlite key/value table.
type Database struct {
	db        *sql.DB
	writer    sqlutil.Writer
	documents *documentsStatements
}

func NewDatabase(dbProperties *config.DatabaseOptions) (storage.Database, error) {
	db, err := sqlutil.Open(dbProperties)
	if err != nil {
		return nil, err
	}
	documents, err := NewSQLiteDocumentsTable(db)
	if err != nil {
		return nil, err
	}
	return &Database{
		db:        db,
		writer:    sqlutil.NewExclusiveWriter(),
		documents: documents,
	}, nil
}

func (d *Database) LoadOwnerships(ctx context.Context) (map[string]*types.RoomOwnership, error) {
	out := map[string]*types.RoomOwnership{}
	if err := d.loadDocument(ctx, ownershipsDocKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Database) LoadMemberConfigs(ctx context.Context) (map[string]*types.MemberModerationConfig, error) {
	out := map[string]*types.MemberModerationConfig{}
	if err := d.loadDocument(ctx, memberConfigsDocKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Database) SaveOwnerships(ctx context.Context, ownerships map[string]*types.RoomOwnership) error {
	return d.saveDocument(ctx, ownershipsDocKey, ownerships)
}

func (d *Database) SaveMemberConfigs(ctx context.Context, configs map[string]*types.MemberModerationConfig) error {
	return d.saveDocument(ctx, memberConfigsDocKey, configs)
}

func (d *Database) loadDocument(ctx context.Context, key string, into interface{}) error {
	doc, err := d.documents.SelectDocument(ctx, nil, key)
	if err != nil {
		return errors.Wrapf(err, "failed to load document %q", key)
	}
	if doc == nil {
		return nil
	}
	if err := json.Unmarshal(doc, into); err != nil {
		return errors.Wrapf(err, "failed to decode document %q", key)
	}
	return nil
}

func (d *Database) saveDocument(ctx context.Context, key string, doc interface{}) error {
	// Only plain data crosses this boundary: the document is marshalled
	// before the write is queued, never stored as a live reference.
	js, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "failed to encode document %q", key)
	}
	return d.writer.Do(d.db, nil, func(txn *sql.Tx) error {
		return d.documents.UpsertDocument(ctx, txn, key, js)
	})
}
