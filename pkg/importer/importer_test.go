package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-inventory-api/internal/schema"
)

// fakeStore is an in-memory Store. Rows become visible to lookups as soon as
// they are inserted, mirroring the visibility inside one transaction.
type fakeStore struct {
	rows    map[string][]map[string]any
	nextID  map[string]int64
	lookups int
	inserts int
	// failOnInsert makes the n-th Insert call fail (1-based); 0 disables.
	failOnInsert int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:   map[string][]map[string]any{},
		nextID: map[string]int64{},
	}
}

func (s *fakeStore) seed(table, idColumn string, fields map[string]any) int64 {
	s.nextID[table]++
	id := s.nextID[table]
	row := map[string]any{idColumn: id}
	for k, v := range fields {
		row[k] = v
	}
	s.rows[table] = append(s.rows[table], row)
	return id
}

func (s *fakeStore) Lookup(_ context.Context, table, idColumn, keyColumn, key string) (int64, bool, error) {
	s.lookups++
	for _, row := range s.rows[table] {
		if v, ok := row[keyColumn].(string); ok && v == key {
			return row[idColumn].(int64), true, nil
		}
	}
	return 0, false, nil
}

func (s *fakeStore) LookupID(_ context.Context, table, idColumn string, id int64) (int64, bool, error) {
	s.lookups++
	for _, row := range s.rows[table] {
		if row[idColumn] == id {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *fakeStore) Insert(_ context.Context, table string, columns []string, values []any) error {
	s.inserts++
	if s.failOnInsert > 0 && s.inserts == s.failOnInsert {
		return errors.New("duplicate key value violates unique constraint")
	}
	s.nextID[table]++
	row := map[string]any{"__id": s.nextID[table]}
	for i, c := range columns {
		row[c] = values[i]
	}
	// expose the id under the entity's id column for later lookups
	for _, ent := range schema.All() {
		if ent.Table == table {
			row[ent.IDColumn] = s.nextID[table]
		}
	}
	s.rows[table] = append(s.rows[table], row)
	return nil
}

func mustEntity(t *testing.T, kind string) schema.Entity {
	t.Helper()
	ent, ok := schema.ByKind(kind)
	require.True(t, ok, "unknown entity kind %q", kind)
	return ent
}

func TestRunBatch_AssignmentsSkipUnresolvedAsset(t *testing.T) {
	store := newFakeStore()
	store.seed("assets", "asset_id", map[string]any{"asset_tag": "IT-0001"})
	store.seed("employees", "employee_id", map[string]any{"email": "a@x.com"})

	csvData := strings.Join([]string{
		"asset_id,employee_email,assigned_date",
		"1,a@x.com,2024-01-01",
		"99,a@x.com,2024-01-02",
	}, "\n")

	res, err := runBatch(context.Background(), store, mustEntity(t, "asset-assignments"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, store.rows["asset_assignments"], 1)
	assert.Equal(t, int64(1), store.rows["asset_assignments"][0]["asset_id"])
	assert.Equal(t, int64(1), store.rows["asset_assignments"][0]["employee_id"])
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `"99" not found`)
}

func TestRunBatch_DedupNaturalKeyWithinBatch(t *testing.T) {
	store := newFakeStore()

	csvData := "name,category\nLaptop,Tangible\nLaptop,Tangible\n"
	res, err := runBatch(context.Background(), store, mustEntity(t, "asset-types"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, store.rows["asset_types"], 1)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "already exists")
}

func TestRunBatch_DedupAgainstExistingStore(t *testing.T) {
	store := newFakeStore()
	store.seed("locations", "location_id", map[string]any{"name": "HQ"})

	csvData := "name,city\nHQ,Tampa\nWarehouse,Orlando\n"
	res, err := runBatch(context.Background(), store, mustEntity(t, "locations"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, store.rows["locations"], 2)
}

func TestRunBatch_UnconditionalEmployeeDuplicates(t *testing.T) {
	store := newFakeStore()

	csvData := strings.Join([]string{
		"first_name,last_name,email",
		"Ada,Lovelace,ada@x.com",
		"Ada,Lovelace,ada@x.com",
	}, "\n")
	res, err := runBatch(context.Background(), store, mustEntity(t, "employees"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 0, res.Skipped)
	assert.Len(t, store.rows["employees"], 2)
}

func TestRunBatch_WeakRefDegradesToNull(t *testing.T) {
	store := newFakeStore()

	// employees insert unconditionally; an unknown department becomes null
	csvData := "first_name,last_name,email,department\nAda,Lovelace,ada@x.com,No Such Dept\n"
	res, err := runBatch(context.Background(), store, mustEntity(t, "employees"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, store.rows["employees"], 1)
	assert.Nil(t, store.rows["employees"][0]["department_id"])
}

func TestRunBatch_AssetSkipsWhenPresentRefUnresolvable(t *testing.T) {
	store := newFakeStore()
	store.seed("vendors", "vendor_id", map[string]any{"name": "Dell"})

	csvData := strings.Join([]string{
		"asset_tag,name,vendor",
		"IT-0001,Latitude 7440,Dell",
		"IT-0002,ThinkPad T14,Lenovo",
		"IT-0003,Spare monitor,",
	}, "\n")
	res, err := runBatch(context.Background(), store, mustEntity(t, "assets"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	// unknown vendor skips the row; an empty reference stays null
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, store.rows["assets"], 2)
	assert.Nil(t, store.rows["assets"][1]["vendor_id"])
}

func TestRunBatch_StoreFailureAbortsBatch(t *testing.T) {
	store := newFakeStore()
	store.failOnInsert = 7

	var lines []string
	lines = append(lines, "name,city")
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("Site %d,Tampa", i))
	}
	_, err := runBatch(context.Background(), store, mustEntity(t, "locations"), strings.NewReader(strings.Join(lines, "\n")), Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique constraint")
	// Run rolls the transaction back on error, so the partial staging in the
	// fake is never committed in production; the error alone is the contract.
}

func TestRunBatch_RowParseFailureSkips(t *testing.T) {
	store := newFakeStore()
	store.seed("assets", "asset_id", map[string]any{"asset_tag": "IT-0001"})

	csvData := strings.Join([]string{
		"asset_id,maintenance_date,cost",
		"IT-0001,2024-02-30,10.00",
		"IT-0001,2024-02-28,not-a-number",
		"IT-0001,2024-02-28,49.995",
	}, "\n")
	res, err := runBatch(context.Background(), store, mustEntity(t, "asset-maintenance"), strings.NewReader(csvData), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.Errors, 2)
}

func TestRunBatch_MaxErrorsCapsMessages(t *testing.T) {
	store := newFakeStore()

	var lines []string
	lines = append(lines, "name,category")
	for i := 0; i < 5; i++ {
		lines = append(lines, "Printer,NotACategory")
	}
	res, err := runBatch(context.Background(), store, mustEntity(t, "asset-types"), strings.NewReader(strings.Join(lines, "\n")), Options{MaxErrors: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Skipped)
	assert.Len(t, res.Errors, 2)
}

func TestRunBatch_EmptyFileAndBlankRows(t *testing.T) {
	store := newFakeStore()
	ent := mustEntity(t, "locations")

	res, err := runBatch(context.Background(), store, ent, strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	res, err = runBatch(context.Background(), store, ent, strings.NewReader("name,city\nHQ,Tampa\n,\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 0, res.Skipped)
}

func TestRunBatch_HeaderAliases(t *testing.T) {
	store := newFakeStore()

	csvData := "Tag No,Name\nIT-0001,Latitude 7440\n"
	res, err := runBatch(context.Background(), store, mustEntity(t, "assets"), strings.NewReader(csvData), Options{
		Aliases: map[string]string{"tag no": "asset_tag"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, store.rows["assets"], 1)
	assert.Equal(t, "IT-0001", store.rows["assets"][0]["asset_tag"])
}

func TestResolver_EmptyInputSkipsStore(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store)
	ref := &schema.Ref{Kind: "vendors", Table: "vendors", IDColumn: "vendor_id", KeyColumn: "name"}

	for _, raw := range []string{"", "   "} {
		id, found, err := resolver.Resolve(context.Background(), ref, raw)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Zero(t, id)
	}
	assert.Equal(t, 0, store.lookups)
}

func TestResolver_AssetByTagOrID(t *testing.T) {
	store := newFakeStore()
	store.seed("assets", "asset_id", map[string]any{"asset_tag": "IT-0001"})
	resolver := NewResolver(store)
	ref := &schema.Ref{Kind: "assets", Table: "assets", IDColumn: "asset_id", KeyColumn: "asset_tag", ByID: true}

	id, found, err := resolver.Resolve(context.Background(), ref, "IT-0001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), id)

	id, found, err = resolver.Resolve(context.Background(), ref, "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), id)

	_, found, err = resolver.Resolve(context.Background(), ref, "99")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadMapping(t *testing.T) {
	doc := `
version: 1
entities:
  assets:
    asset_tag: ["Tag No", "asset no"]
    purchase_date: ["Purchased"]
`
	m, err := LoadMapping(strings.NewReader(doc))
	require.NoError(t, err)

	aliases := m.Aliases("assets")
	assert.Equal(t, "asset_tag", aliases["tag no"])
	assert.Equal(t, "asset_tag", aliases["asset no"])
	assert.Equal(t, "purchase_date", aliases["purchased"])
	assert.Empty(t, m.Aliases("vendors"))
}
