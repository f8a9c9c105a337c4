package handlers

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx/v3"

	"asset-inventory-api/internal/schema"
)

// ExportsHandler produces CSV and Excel snapshots of the inventory tables.
// Reference columns are exported under their import header names carrying
// natural keys, so an exported file feeds straight back into the importer.
type ExportsHandler struct {
	DB  *sql.DB
	Log *logrus.Logger
}

// NewExportsHandler creates a new exports handler
func NewExportsHandler(db *sql.DB, log *logrus.Logger) *ExportsHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExportsHandler{DB: db, Log: log}
}

// exportQuery builds the projection for one entity. References resolved by
// natural key join out to the referenced table; asset references stay as raw
// numeric ids, which the importer also accepts.
func exportQuery(ent schema.Entity) (string, []string) {
	headers := []string{ent.IDColumn}
	cols := []string{"t0." + ent.IDColumn}
	joins := []string{}

	for _, c := range ent.Columns {
		headers = append(headers, c.CSVHeader())
		if c.Kind == schema.KindRef && !c.Ref.ByID {
			alias := fmt.Sprintf("j%d", len(joins)+1)
			joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = t0.%s",
				c.Ref.Table, alias, alias, c.Ref.IDColumn, c.Name))
			cols = append(cols, alias+"."+c.Ref.KeyColumn)
		} else {
			cols = append(cols, "t0."+c.Name)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s t0", strings.Join(cols, ", "), ent.Table)
	if len(joins) > 0 {
		query += " " + strings.Join(joins, " ")
	}
	query += " ORDER BY t0." + ent.IDColumn
	return query, headers
}

// exportRows runs the export query and renders every value to its CSV text
// form. Nulls render as empty cells, dates as YYYY-MM-DD.
func (h *ExportsHandler) exportRows(ctx context.Context, ent schema.Entity) ([]string, [][]string, error) {
	query, headers := exportQuery(ent)
	rows, err := h.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("export %s: %w", ent.Kind, err)
	}
	defer rows.Close()

	out := [][]string{}
	for rows.Next() {
		holders := []any{new(int64)}
		for _, c := range ent.Columns {
			switch {
			case c.Kind == schema.KindRef && !c.Ref.ByID:
				holders = append(holders, new(sql.NullString))
			case c.Kind == schema.KindRef || c.Kind == schema.KindInt:
				holders = append(holders, new(sql.NullInt64))
			case c.Kind == schema.KindDate:
				holders = append(holders, new(sql.NullTime))
			default:
				holders = append(holders, new(sql.NullString))
			}
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, nil, fmt.Errorf("export %s: %w", ent.Kind, err)
		}

		record := []string{strconv.FormatInt(*(holders[0].(*int64)), 10)}
		for i := range ent.Columns {
			switch v := holders[i+1].(type) {
			case *sql.NullString:
				record = append(record, v.String)
			case *sql.NullInt64:
				if v.Valid {
					record = append(record, strconv.FormatInt(v.Int64, 10))
				} else {
					record = append(record, "")
				}
			case *sql.NullTime:
				if v.Valid {
					record = append(record, v.Time.Format("2006-01-02"))
				} else {
					record = append(record, "")
				}
			}
		}
		out = append(out, record)
	}
	return headers, out, rows.Err()
}

// ExportKindCSV handles GET /exports/csv/{kind}
func (h *ExportsHandler) ExportKindCSV(w http.ResponseWriter, r *http.Request) {
	ent, ok := schema.ByKind(chi.URLParam(r, "kind"))
	if !ok {
		http.Error(w, "unknown export kind", http.StatusNotFound)
		return
	}

	headers, records, err := h.exportRows(r.Context(), ent)
	if err != nil {
		h.Log.WithError(err).Error("csv export failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", ent.Table))

	cw := csv.NewWriter(w)
	cw.Write(headers)
	for _, rec := range records {
		cw.Write(rec)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.Log.WithError(err).Error("csv write failed")
	}
}

// ExportAllCSV handles GET /exports/csv. One CSV per table, zipped, ordered
// so that re-importing the files in archive order satisfies references.
func (h *ExportsHandler) ExportAllCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory_export.zip")

	zw := zip.NewWriter(w)
	for _, ent := range schema.All() {
		headers, records, err := h.exportRows(r.Context(), ent)
		if err != nil {
			h.Log.WithError(err).Error("zip export failed")
			zw.Close()
			return
		}
		f, err := zw.Create(ent.Table + ".csv")
		if err != nil {
			h.Log.WithError(err).Error("zip export failed")
			zw.Close()
			return
		}
		cw := csv.NewWriter(f)
		cw.Write(headers)
		for _, rec := range records {
			cw.Write(rec)
		}
		cw.Flush()
	}
	if err := zw.Close(); err != nil {
		h.Log.WithError(err).Error("zip close failed")
	}
}

// ExportXLSX handles GET /exports/xlsx. One workbook, one sheet per table.
func (h *ExportsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	wb := xlsx.NewFile()
	for _, ent := range schema.All() {
		headers, records, err := h.exportRows(r.Context(), ent)
		if err != nil {
			h.Log.WithError(err).Error("xlsx export failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sheet, err := wb.AddSheet(ent.Table)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		headerRow := sheet.AddRow()
		for _, hcell := range headers {
			headerRow.AddCell().SetString(hcell)
		}
		for _, rec := range records {
			row := sheet.AddRow()
			for _, cell := range rec {
				row.AddCell().SetString(cell)
			}
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=inventory_export.xlsx")
	if err := wb.Write(w); err != nil {
		h.Log.WithError(err).Error("xlsx write failed")
	}
}
