package tests

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-inventory-api/internal/handlers"
	"asset-inventory-api/internal/schema"
	"asset-inventory-api/pkg/importer"
)

func TestImportDedupCommitsBatch(t *testing.T) {
	db, pool := setup(t)

	ent, ok := schema.ByKind("asset-types")
	require.True(t, ok)

	csvData := "name,category,description\n" +
		"Laptop,Tangible,Portable computer\n" +
		"Laptop,Tangible,duplicate row\n" +
		"Software License,Intangible,\n"

	result, err := importer.Run(context.Background(), pool, ent, strings.NewReader(csvData), importer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, countRows(t, db, "asset_types"))
}

func TestImportRollsBackOnConstraintViolation(t *testing.T) {
	db, pool := setup(t)

	ent, ok := schema.ByKind("employees")
	require.True(t, ok)

	// Employees insert unconditionally, so the duplicate email hits the
	// UNIQUE constraint and the whole batch rolls back.
	csvData := "first_name,last_name,email\n" +
		"Ada,Lovelace,ada@example.com\n" +
		"Grace,Hopper,grace@example.com\n" +
		"Ada,Again,ada@example.com\n"

	_, err := importer.Run(context.Background(), pool, ent, strings.NewReader(csvData), importer.Options{})
	require.Error(t, err)

	assert.Equal(t, 0, countRows(t, db, "employees"))
}

func TestImportAssetsResolvesNaturalKeys(t *testing.T) {
	db, pool := setup(t)

	mustExec(t, db, "INSERT INTO asset_types (name, category) VALUES ('Laptop', 'Tangible')")
	mustExec(t, db, "INSERT INTO asset_statuses (status_name) VALUES ('In Use')")
	mustExec(t, db, "INSERT INTO locations (name) VALUES ('HQ')")
	mustExec(t, db, "INSERT INTO vendors (name) VALUES ('Dell')")
	mustExec(t, db, "INSERT INTO employees (first_name, last_name, email) VALUES ('Ada', 'Lovelace', 'ada@example.com')")

	ent, ok := schema.ByKind("assets")
	require.True(t, ok)

	csvData := "asset_tag,name,asset_type,status,location,vendor,assigned_to,purchase_date,purchase_cost\n" +
		"IT-0001,ThinkPad X1,Laptop,In Use,HQ,Dell,ada@example.com,2024-01-15,1499.999\n" +
		"IT-0002,Mystery Box,Laptop,Lost Forever,HQ,Dell,,2024-02-01,10\n" +
		"IT-0003,Bare Asset,,,,,,,\n"

	result, err := importer.Run(context.Background(), pool, ent, strings.NewReader(csvData), importer.Options{})
	require.NoError(t, err)

	// Row 2 names a status that does not exist; assets require present
	// references to resolve, so the row is skipped, not nulled.
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Skipped)

	var typeID, statusID, assignedTo int64
	var cost string
	err = db.QueryRowContext(context.Background(), `
		SELECT asset_type_id, status_id, assigned_to, purchase_cost
		FROM assets WHERE asset_tag = 'IT-0001'`).Scan(&typeID, &statusID, &assignedTo, &cost)
	require.NoError(t, err)
	assert.Positive(t, typeID)
	assert.Positive(t, statusID)
	assert.Positive(t, assignedTo)
	assert.Equal(t, "1500.00", cost)

	// Empty references stay null.
	var nullType any
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT asset_type_id FROM assets WHERE asset_tag = 'IT-0003'").Scan(&nullType))
	assert.Nil(t, nullType)
}

func TestImportAssignmentsByTagAndID(t *testing.T) {
	db, pool := setup(t)

	mustExec(t, db, "INSERT INTO employees (first_name, last_name, email) VALUES ('Ada', 'Lovelace', 'ada@example.com')")
	mustExec(t, db, "INSERT INTO assets (asset_tag, name) VALUES ('IT-0001', 'ThinkPad')")

	var assetID int64
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT asset_id FROM assets WHERE asset_tag = 'IT-0001'").Scan(&assetID))

	ent, ok := schema.ByKind("asset-assignments")
	require.True(t, ok)

	csvData := "asset_id,employee_email,assigned_date\n" +
		"IT-0001,ada@example.com,2024-01-01\n" + // by tag
		"1,ada@example.com,2024-01-02\n" + // by surrogate id
		"9999,ada@example.com,2024-01-03\n" // unknown either way

	result, err := importer.Run(context.Background(), pool, ent, strings.NewReader(csvData), importer.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "9999")
	assert.Equal(t, 2, countRows(t, db, "asset_assignments"))
}

func TestExportImportRoundTrip(t *testing.T) {
	db, pool := setup(t)

	mustExec(t, db, "INSERT INTO asset_types (name, category, description) VALUES ('Laptop', 'Tangible', 'Portable')")
	mustExec(t, db, "INSERT INTO asset_types (name, category) VALUES ('Software License', 'Intangible')")

	exports := handlers.NewExportsHandler(db, nil)
	req := httptest.NewRequest("GET", "/exports/csv/asset-types", nil)
	w := httptest.NewRecorder()
	exports.ExportKindCSV(w, withKind(req, "asset-types"))
	require.Equal(t, 200, w.Code)
	exported := w.Body.String()

	mustExec(t, db, "TRUNCATE asset_types CASCADE")

	ent, ok := schema.ByKind("asset-types")
	require.True(t, ok)

	// The exported id column is ignored; natural keys carry the data back.
	result, err := importer.Run(context.Background(), pool, ent, strings.NewReader(exported), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 2, countRows(t, db, "asset_types"))
}
