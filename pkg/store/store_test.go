package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

func testDataset() *Dataset {
	return &Dataset{
		Persons: []Person{
			{ID: "1", Name: "Ada", Title: "Engineer", Handles: []string{"https://www.linkedin.com/in/Ada-L/"}},
			{ID: "2", Name: "Brian"},
			{ID: "3", Name: "Carol"},
			{ID: "4", Name: "Dan"},
		},
		Companies: []Company{{ID: "10", Name: "Acme"}, {ID: "11", Name: "Initech"}},
		Stints: []Stint{
			{PersonID: "1", CompanyID: "10", Start: "2015-01-01", End: "2018-01-01"},
			{PersonID: "1", CompanyID: "11", Start: "2018-02-01"},
			{PersonID: "2", CompanyID: "10", Start: "2014-01-01", End: "2016-01-01"},
			{PersonID: "2", CompanyID: "11", Start: "2019-01-01"},
			{PersonID: "3", CompanyID: "11", Start: "2020-01-01"},
			{PersonID: "4", CompanyID: "10", Start: "2010-01-01", End: "2012-01-01"},
			{PersonID: "4", CompanyID: "10", Start: "2013-01-01", End: "2014-01-01"},
		},
	}
}

func openTest(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Import(ctx, testDataset()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return st
}

func TestPersonEgo(t *testing.T) {
	st := openTest(t)
	ego, err := st.Ego(context.Background(), KindPerson, "1", VariantAll, 0)
	if err != nil {
		t.Fatalf("Ego: %v", err)
	}
	if ego.Focal.Name != "Ada" || ego.Focal.Title != "Engineer" {
		t.Errorf("focal = %+v", ego.Focal)
	}

	// Dan shares two Acme stints, Brian one at each company, Carol one.
	want := []Neighbor{
		{ID: "2", Name: "Brian", Weight: 2},
		{ID: "4", Name: "Dan", Weight: 2},
		{ID: "3", Name: "Carol", Weight: 1},
	}
	if len(ego.Neighbors) != len(want) {
		t.Fatalf("neighbors = %+v", ego.Neighbors)
	}
	for i, n := range want {
		if ego.Neighbors[i] != n {
			t.Errorf("neighbor %d = %+v, want %+v", i, ego.Neighbors[i], n)
		}
	}
	if got := ego.Labels(); got[0] != "Ada" || got[1] != "Brian" {
		t.Errorf("Labels() = %v", got)
	}
	if got := ego.Weights(); len(got) != 3 || got[2] != 1 {
		t.Errorf("Weights() = %v", got)
	}
}

func TestPersonEgoCurrentAndLimit(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	ego, err := st.Ego(ctx, KindPerson, "1", VariantCurrent, 0)
	if err != nil {
		t.Fatalf("Ego: %v", err)
	}
	if len(ego.Neighbors) != 2 || ego.Neighbors[0].ID != "2" || ego.Neighbors[1].ID != "3" {
		t.Errorf("current neighbors = %+v", ego.Neighbors)
	}

	ego, err = st.Ego(ctx, KindPerson, "1", VariantAll, 1)
	if err != nil {
		t.Fatalf("Ego: %v", err)
	}
	if len(ego.Neighbors) != 1 {
		t.Errorf("limit 1 returned %d neighbors", len(ego.Neighbors))
	}
}

func TestCompanyEgo(t *testing.T) {
	st := openTest(t)
	ego, err := st.Ego(context.Background(), KindCompany, "10", "", 0)
	if err != nil {
		t.Fatalf("Ego: %v", err)
	}
	if ego.Focal.Name != "Acme" {
		t.Errorf("focal = %+v", ego.Focal)
	}
	if len(ego.Neighbors) != 3 || ego.Neighbors[0].ID != "4" || ego.Neighbors[0].Weight != 2 {
		t.Errorf("employees = %+v", ego.Neighbors)
	}
}

func TestEgoErrors(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	tests := []struct {
		kind, id, variant string
		code              gerrors.Code
	}{
		{KindPerson, "999", VariantAll, gerrors.ErrCodeNotFound},
		{KindCompany, "999", VariantAll, gerrors.ErrCodeNotFound},
		{"team", "1", VariantAll, gerrors.ErrCodeInvalidInput},
		{KindPerson, "1", "weird", gerrors.ErrCodeInvalidInput},
		{KindPerson, "../x", VariantAll, gerrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		_, err := st.Ego(ctx, tt.kind, tt.id, tt.variant, 0)
		if got := gerrors.GetCode(err); got != tt.code {
			t.Errorf("Ego(%s, %s, %s) code = %q, want %q (%v)", tt.kind, tt.id, tt.variant, got, tt.code, err)
		}
	}
}

func TestEgoIsolatedPerson(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Import(ctx, &Dataset{Persons: []Person{{ID: "7", Name: "Solo"}}}); err != nil {
		t.Fatal(err)
	}
	ego, err := st.Ego(ctx, KindPerson, "7", VariantAll, 0)
	if err != nil {
		t.Fatalf("Ego: %v", err)
	}
	if len(ego.Neighbors) != 0 {
		t.Errorf("neighbors = %+v", ego.Neighbors)
	}
}

func TestResolveHandle(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	for _, q := range []string{"ada-l", "https://linkedin.com/in/ADA-L", " Ada-L "} {
		id, err := st.ResolveHandle(ctx, q)
		if err != nil || id != "1" {
			t.Errorf("ResolveHandle(%q) = %q, %v", q, id, err)
		}
	}
	if _, err := st.ResolveHandle(ctx, "nobody"); !gerrors.Is(err, gerrors.ErrCodeNotFound) {
		t.Errorf("ResolveHandle(nobody) err = %v", err)
	}
}

func TestListing(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()

	people, err := st.People(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(people) != 4 || people[0].ID != "1" {
		t.Fatalf("People() = %+v", people)
	}
	sort.Strings(people[0].Handles)
	if len(people[0].Handles) != 1 || people[0].Handles[0] != "ada-l" {
		t.Errorf("handles = %v", people[0].Handles)
	}

	companies, err := st.Companies(ctx)
	if err != nil || len(companies) != 2 {
		t.Fatalf("Companies() = %+v, %v", companies, err)
	}

	p, c, s, err := st.Counts(ctx)
	if err != nil || p != 4 || c != 2 || s != 7 {
		t.Errorf("Counts() = %d %d %d %v", p, c, s, err)
	}
}

func TestOpenFileAndReadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ds.json")
	if err := os.WriteFile(path, []byte(`{"persons":[{"id":"1","name":"Ada"}],"companies":[],"stints":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := ReadDataset(path)
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}

	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(dir, "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if err := st.Import(ctx, ds); err != nil {
		t.Fatalf("Import: %v", err)
	}
	e, err := st.Person(ctx, "1")
	if err != nil || e.Name != "Ada" {
		t.Errorf("Person(1) = %+v, %v", e, err)
	}
}
