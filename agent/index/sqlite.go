package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

type Config struct {
	Path string `envconfig:"PATH" split_words:"true" default:"data/index.db"`
}

var indexNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLiteIndex stores one FTS5 virtual table per collection name. Name is the
// searchable column; stock/price/category ride along unindexed so a match
// returns the full document.
type SQLiteIndex struct {
	db *sql.DB
}

func Open(path string) (*SQLiteIndex, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("index path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	if err := probeFullTextSupport(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

// probeFullTextSupport fails fast when the driver was compiled without the
// sqlite_fts5 build tag. Every collection is an FTS5 virtual table, so a
// binary without the module cannot serve a single lookup; better to refuse at
// startup than to fail every rebuild.
func probeFullTextSupport(db *sql.DB) error {
	if _, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS fts5_probe USING fts5(probe)`); err != nil {
		return fmt.Errorf("search index needs the fts5 module, rebuild with -tags sqlite_fts5: %w", err)
	}
	if _, err := db.Exec(`DROP TABLE IF EXISTS fts5_probe`); err != nil {
		return fmt.Errorf("drop fts5 probe table: %w", err)
	}
	return nil
}

func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

func (x *SQLiteIndex) Exists(ctx context.Context, name string) (bool, error) {
	table, err := tableName(name)
	if err != nil {
		return false, err
	}

	var found string
	err = x.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	return true, nil
}

// Drop removes a collection. A missing collection is success.
func (x *SQLiteIndex) Drop(ctx context.Context, name string) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if _, err := x.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	return nil
}

func (x *SQLiteIndex) BulkInsert(ctx context.Context, name string, docs []contractx.Document) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert into %s: %w", name, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS `+table+
		` USING fts5(name, content, stock UNINDEXED, price UNINDEXED, category UNINDEXED)`)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (name, content, stock, price, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.Name, d.Content, d.Stock, d.Price, d.Category); err != nil {
			return fmt.Errorf("insert %q into %s: %w", d.Name, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert into %s: %w", name, err)
	}
	return nil
}

// MatchTop returns up to limit documents ranked by bm25 against the query.
// No match yields an empty slice, not an error.
func (x *SQLiteIndex) MatchTop(ctx context.Context, name string, query string, limit int) ([]contractx.Document, error) {
	table, err := tableName(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT name, content, stock, price, category
		 FROM `+table+`
		 WHERE `+table+` MATCH ?
		 ORDER BY bm25(`+table+`)
		 LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", name, err)
	}
	defer rows.Close()

	var docs []contractx.Document
	for rows.Next() {
		var d contractx.Document
		if err := rows.Scan(&d.Name, &d.Content, &d.Stock, &d.Price, &d.Category); err != nil {
			return nil, fmt.Errorf("scan match from %s: %w", name, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read matches from %s: %w", name, err)
	}
	return docs, nil
}

func tableName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !indexNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid index name %q", name)
	}
	return "idx_" + name, nil
}

// ftsQuery rewrites free text into a safe FTS5 match expression: each token
// is quoted (so "tienen capuccino?" cannot break the MATCH grammar) and
// tokens are OR-ed to approximate nearest-match behavior.
func ftsQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !isWordRune(r)
	})
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 0x80: // keep accented letters
		return true
	}
	return false
}
