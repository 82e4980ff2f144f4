package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore implements the same replace-the-whole-table contract on Postgres.
// Each table holds the canonical columns as text plus a serial position
// column preserving row order. Save runs DELETE + INSERT in one transaction,
// so a reader never sees a half-replaced table, but two concurrent savers
// still end with whichever transaction committed last.
type PGStore struct {
	db *sql.DB
}

// NewPGStore connects with sane pool defaults and creates the given tables
// if they do not exist yet.
func NewPGStore(connString string, specs ...Spec) (*PGStore, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	s := &PGStore{db: db}
	for _, spec := range specs {
		if err := s.migrate(spec); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate %s: %w", spec.Name, err)
		}
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *PGStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PGStore) migrate(spec Spec) error {
	cols := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		cols = append(cols, quoteIdent(c)+` TEXT NOT NULL DEFAULT ''`)
	}
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (pos BIGSERIAL PRIMARY KEY, %s)`,
		quoteIdent(spec.Name), strings.Join(cols, ", "),
	)
	_, err := s.db.Exec(stmt)
	return err
}

// Load reads the whole table in insertion order.
func (s *PGStore) Load(ctx context.Context, spec Spec) (Table, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY pos`,
		joinIdents(spec.Columns), quoteIdent(spec.Name),
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return New(spec), fmt.Errorf("load %s: %w", spec.Name, err)
	}
	defer rows.Close()

	t := New(spec)
	for rows.Next() {
		vals := make([]string, len(spec.Columns))
		dest := make([]any, len(spec.Columns))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return New(spec), fmt.Errorf("load %s: %w", spec.Name, err)
		}
		t.Append(vals)
	}
	if err := rows.Err(); err != nil {
		return New(spec), fmt.Errorf("load %s: %w", spec.Name, err)
	}
	return t, nil
}

// Save replaces the table wholesale in one transaction.
func (s *PGStore) Save(ctx context.Context, spec Spec, t Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(spec.Name)); err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}

	placeholders := make([]string, len(spec.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(spec.Name), joinIdents(spec.Columns), strings.Join(placeholders, ","),
	)
	for _, row := range t.Rows {
		args := make([]any, len(spec.Columns))
		for i := range spec.Columns {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("save %s: %w", spec.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
