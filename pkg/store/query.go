package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// DefaultLimit bounds neighbor rows when the caller passes zero.
const DefaultLimit = 1500

// Entity is the focal node of an ego query.
type Entity struct {
	Kind  string
	ID    string
	Name  string
	Title string
}

// Neighbor is one related person. Weight counts shared stints.
type Neighbor struct {
	ID     string
	Name   string
	Title  string
	Weight int
}

// Ego is the focal entity and its neighbors, heaviest first.
type Ego struct {
	Focal     Entity
	Neighbors []Neighbor
}

// Labels returns display names with the focal entity first.
func (e *Ego) Labels() []string {
	out := make([]string, 0, len(e.Neighbors)+1)
	out = append(out, e.Focal.Name)
	for _, n := range e.Neighbors {
		out = append(out, n.Name)
	}
	return out
}

// Weights returns neighbor weights in order.
func (e *Ego) Weights() []int {
	out := make([]int, len(e.Neighbors))
	for i, n := range e.Neighbors {
		out[i] = n.Weight
	}
	return out
}

const personNeighborsSQL = `
	SELECT s2.person_id, COALESCE(p.full_name, ''), COALESCE(p.title, ''), COUNT(*) AS weight
	FROM stints s1
	JOIN stints s2 ON s2.company_id = s1.company_id AND s2.person_id <> s1.person_id
	LEFT JOIN persons p ON p.person_id = s2.person_id
	WHERE s1.person_id = ?
	  AND (? = 'all' OR (s1.end_date IS NULL AND s2.end_date IS NULL))
	GROUP BY s2.person_id
	ORDER BY weight DESC, s2.person_id
	LIMIT ?`

const companyEmployeesSQL = `
	SELECT s.person_id, COALESCE(p.full_name, ''), COALESCE(p.title, ''), COUNT(*) AS weight
	FROM stints s
	LEFT JOIN persons p ON p.person_id = s.person_id
	WHERE s.company_id = ?
	  AND (? = 'all' OR s.end_date IS NULL)
	GROUP BY s.person_id
	ORDER BY weight DESC, s.person_id
	LIMIT ?`

// Ego loads the focal entity and up to limit neighbors. For a person the
// neighbors are colleagues who shared a company, for a company its
// employees; both are weighted by stint count. variant "current" restricts
// to stints without an end date.
func (s *Store) Ego(ctx context.Context, kind, id, variant string, limit int) (*Ego, error) {
	if err := gerrors.ValidateEntityID(id); err != nil {
		return nil, err
	}
	switch variant {
	case "":
		variant = VariantAll
	case VariantAll, VariantCurrent:
	default:
		return nil, gerrors.New(gerrors.ErrCodeInvalidInput, "unknown variant %q", variant)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		focal Entity
		query string
		err   error
	)
	switch kind {
	case KindPerson:
		focal, err = s.Person(ctx, id)
		query = personNeighborsSQL
	case KindCompany:
		focal, err = s.Company(ctx, id)
		query = companyEmployeesSQL
	default:
		return nil, gerrors.New(gerrors.ErrCodeInvalidInput, "unknown entity kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, id, variant, limit)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInternal, err, "query neighbors of %s:%s", kind, id)
	}
	defer rows.Close()

	ego := &Ego{Focal: focal}
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Name, &n.Title, &n.Weight); err != nil {
			return nil, err
		}
		ego.Neighbors = append(ego.Neighbors, n)
	}
	return ego, rows.Err()
}

// Person loads one person.
func (s *Store) Person(ctx context.Context, id string) (Entity, error) {
	e := Entity{Kind: KindPerson, ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT full_name, title FROM persons WHERE person_id = ?`, id).Scan(&e.Name, &e.Title)
	return e, rowErr(err, "person", id)
}

// Company loads one company.
func (s *Store) Company(ctx context.Context, id string) (Entity, error) {
	e := Entity{Kind: KindCompany, ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM companies WHERE company_id = ?`, id).Scan(&e.Name)
	return e, rowErr(err, "company", id)
}

func rowErr(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return gerrors.New(gerrors.ErrCodeNotFound, "no %s with id %s", kind, id)
	}
	if err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInternal, err, "load %s %s", kind, id)
	}
	return nil
}

// ResolveHandle finds the person behind a profile URL or vanity handle.
// The normalized slug is tried first, then the raw input.
func (s *Store) ResolveHandle(ctx context.Context, handle string) (string, error) {
	raw := strings.TrimSpace(handle)
	for _, v := range []string{normalizeHandle(raw), strings.ToLower(raw)} {
		if v == "" {
			continue
		}
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT person_id FROM person_handles WHERE value = ? LIMIT 1`, v).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", gerrors.Wrap(gerrors.ErrCodeInternal, err, "resolve handle")
		}
	}
	return "", gerrors.New(gerrors.ErrCodeNotFound, "no person for handle %q", raw)
}

// People lists every person with their handles, ordered by id.
func (s *Store) People(ctx context.Context) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.person_id, p.full_name, p.title, p.location, COALESCE(GROUP_CONCAT(h.value, char(31)), '')
		FROM persons p
		LEFT JOIN person_handles h ON h.person_id = p.person_id
		GROUP BY p.person_id
		ORDER BY p.person_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var (
			p       Person
			handles string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Title, &p.Location, &handles); err != nil {
			return nil, err
		}
		if handles != "" {
			p.Handles = strings.Split(handles, "\x1f")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Companies lists every company ordered by id.
func (s *Store) Companies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT company_id, name FROM companies ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Counts returns the number of persons, companies and stints.
func (s *Store) Counts(ctx context.Context) (persons, companies, stints int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM persons), (SELECT COUNT(*) FROM companies), (SELECT COUNT(*) FROM stints)`,
	).Scan(&persons, &companies, &stints)
	return
}
