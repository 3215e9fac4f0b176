package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// Entity kinds accepted by [Store.Ego].
const (
	KindPerson  = "person"
	KindCompany = "company"
)

// Variants accepted by [Store.Ego].
const (
	VariantAll     = "all"
	VariantCurrent = "current"
)

// Person is one row of the persons table plus its profile handles.
type Person struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Title    string   `json:"title,omitempty"`
	Location string   `json:"location,omitempty"`
	Handles  []string `json:"handles,omitempty"`
}

// Company is one row of the companies table.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Stint is a period a person spent at a company. An empty End means the
// stint is current.
type Stint struct {
	PersonID  string `json:"person_id"`
	CompanyID string `json:"company_id"`
	Title     string `json:"title,omitempty"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
}

// Dataset is the import format read by [ReadDataset].
type Dataset struct {
	Persons   []Person  `json:"persons"`
	Companies []Company `json:"companies"`
	Stints    []Stint   `json:"stints"`
}

// ReadDataset decodes a JSON dataset file.
func ReadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode dataset %s", path)
	}
	return &ds, nil
}

// Store is a read-mostly SQLite database of persons, companies and the
// stints linking them.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and ensures the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// writer contention on files.
	db.SetMaxOpenConns(1)

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Import inserts or replaces every row of ds in a single transaction.
func (s *Store) Import(ctx context.Context, ds *Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertPersons(ctx, tx, ds.Persons); err != nil {
		return fmt.Errorf("insert persons: %w", err)
	}
	if err := insertCompanies(ctx, tx, ds.Companies); err != nil {
		return fmt.Errorf("insert companies: %w", err)
	}
	if err := insertStints(ctx, tx, ds.Stints); err != nil {
		return fmt.Errorf("insert stints: %w", err)
	}
	return tx.Commit()
}

func insertPersons(ctx context.Context, tx *sql.Tx, persons []Person) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO persons (person_id, full_name, title, location)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	hstmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO person_handles (value, person_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer hstmt.Close()

	for _, p := range persons {
		if err := gerrors.ValidateEntityID(p.ID); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Title, p.Location); err != nil {
			return err
		}
		for _, h := range p.Handles {
			if h = normalizeHandle(h); h == "" {
				continue
			}
			if _, err := hstmt.ExecContext(ctx, h, p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertCompanies(ctx context.Context, tx *sql.Tx, companies []Company) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO companies (company_id, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range companies {
		if err := gerrors.ValidateEntityID(c.ID); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name); err != nil {
			return err
		}
	}
	return nil
}

func insertStints(ctx context.Context, tx *sql.Tx, stints []Stint) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stints (person_id, company_id, title, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range stints {
		if _, err := stmt.ExecContext(ctx, st.PersonID, st.CompanyID, st.Title, nullable(st.Start), nullable(st.End)); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHandle reduces a profile URL to its vanity slug and lower-cases
// it. Plain handles are only lower-cased.
func normalizeHandle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, after, ok := strings.Cut(s, "/in/"); ok {
		s = after
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
