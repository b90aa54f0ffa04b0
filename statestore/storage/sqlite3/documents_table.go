package sqlite3

import (
	"context"
	"database/sql"

	"github.com/voicewarden/voicewarden/internal"
	"github.com/voicewarden/voicewarden/internal/sqlutil"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS statestore_documents (
	-- The logical document key, e.g. "ownerships" or "member_configs"
	doc_key TEXT NOT NULL PRIMARY KEY,
	-- The serialised JSON document
	doc_json TEXT NOT NULL
);
`

const upsertDocumentSQL = "" +
	"INSERT INTO statestore_documents (doc_key, doc_json) VALUES ($1, $2)" +
	" ON CONFLICT (doc_key) DO UPDATE SET doc_json = $2"

const selectDocumentSQL = "" +
	"SELECT doc_json FROM statestore_documents WHERE doc_key = $1"

type documentsStatements struct {
	db                 *sql.DB
	upsertDocumentStmt *sql.Stmt
	selectDocumentStmt *sql.Stmt
}

func NewSQLiteDocumentsTable(db *sql.DB) (s *documentsStatements, err error) {
	s = &documentsStatements{
		db: db,
	}
	_, err = db.Exec(documentsSchema)
	if err != nil {
		return
	}

	return s, sqlutil.StatementList{
		{&s.upsertDocumentStmt, upsertDocumentSQL},
		{&s.selectDocumentStmt, selectDocumentSQL},
	}.Prepare(db)
}

func (s *documentsStatements) UpsertDocument(
	ctx context.Context, txn *sql.Tx, key string, json []byte,
) error {
	stmt := sqlutil.TxStmt(txn, s.upsertDocumentStmt)
	_, err := stmt.ExecContext(ctx, key, string(json))
	return err
}

// SelectDocument returns nil with no error if the document does not exist.
func (s *documentsStatements) SelectDocument(
	ctx context.Context, txn *sql.Tx, key string,
) ([]byte, error) {
	stmt := sqlutil.TxStmt(txn, s.selectDocumentStmt)
	rows, err := stmt.QueryContext(ctx, key)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "SelectDocument: rows.close() failed")
	if !rows.Next() {
		return nil, rows.Err()
	}
	var doc string
	if err = rows.Scan(&doc); err != nil {
		return nil, err
	}
	return []byte(doc), rows.Err()
}
