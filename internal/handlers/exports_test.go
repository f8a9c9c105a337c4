package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-inventory-api/internal/schema"
)

func TestExportQuery_AssetsJoinsNaturalKeys(t *testing.T) {
	ent, ok := schema.ByKind("assets")
	require.True(t, ok)

	query, headers := exportQuery(ent)

	// Reference columns come out under their import header names.
	assert.Equal(t, "asset_id", headers[0])
	assert.Contains(t, headers, "asset_type")
	assert.Contains(t, headers, "status")
	assert.Contains(t, headers, "location")
	assert.Contains(t, headers, "vendor")

	assert.Contains(t, query, "LEFT JOIN asset_types")
	assert.Contains(t, query, "LEFT JOIN asset_statuses")
	assert.Contains(t, query, "ORDER BY t0.asset_id")
}

func TestExportQuery_AssignmentsKeepRawAssetID(t *testing.T) {
	ent, ok := schema.ByKind("asset-assignments")
	require.True(t, ok)

	query, headers := exportQuery(ent)

	// Asset references export as numeric ids; the importer resolves those too.
	assert.Contains(t, query, "t0.asset_id")
	assert.NotContains(t, query, "LEFT JOIN assets")
	assert.Contains(t, query, "LEFT JOIN employees")
	assert.Contains(t, headers, "employee_email")
}

func TestExportKindCSV_UnknownKind(t *testing.T) {
	handler := NewExportsHandler(nil, nil)

	req := withKind(httptest.NewRequest("GET", "/exports/csv/widgets", nil), "widgets")
	w := httptest.NewRecorder()
	handler.ExportKindCSV(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown export kind")
}
