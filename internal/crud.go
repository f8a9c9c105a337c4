package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"asset-inventory-api/internal/schema"
)

// Generic CRUD over the schema descriptors. One engine serves every
// inventory table, configured by its schema.Entity.

const dateLayout = "2006-01-02"

// selectColumns returns the full projection for an entity: id, declared
// columns, then timestamps when the table carries them.
func selectColumns(ent schema.Entity) []string {
	cols := []string{ent.IDColumn}
	for _, c := range ent.Columns {
		cols = append(cols, c.Name)
	}
	if ent.Timestamps {
		cols = append(cols, "created_at", "updated_at")
	}
	return cols
}

// scanHolders allocates scan destinations matching selectColumns.
func scanHolders(ent schema.Entity) []any {
	hs := []any{new(int64)}
	for _, c := range ent.Columns {
		switch c.Kind {
		case schema.KindRef, schema.KindInt:
			hs = append(hs, new(sql.NullInt64))
		case schema.KindDate:
			hs = append(hs, new(sql.NullTime))
		default:
			// decimals arrive as numeric strings; text and enums as text
			hs = append(hs, new(sql.NullString))
		}
	}
	if ent.Timestamps {
		hs = append(hs, new(time.Time), new(time.Time))
	}
	return hs
}

// rowToMap converts scanned holders into a JSON-ready record keyed by
// database column names. Dates render as YYYY-MM-DD.
func rowToMap(ent schema.Entity, hs []any) map[string]any {
	out := map[string]any{ent.IDColumn: *(hs[0].(*int64))}
	for i, c := range ent.Columns {
		switch v := hs[i+1].(type) {
		case *sql.NullInt64:
			if v.Valid {
				out[c.Name] = v.Int64
			} else {
				out[c.Name] = nil
			}
		case *sql.NullTime:
			if v.Valid {
				out[c.Name] = v.Time.Format(dateLayout)
			} else {
				out[c.Name] = nil
			}
		case *sql.NullString:
			if v.Valid {
				out[c.Name] = v.String
			} else {
				out[c.Name] = nil
			}
		}
	}
	if ent.Timestamps {
		out["created_at"] = *(hs[len(hs)-2].(*time.Time))
		out["updated_at"] = *(hs[len(hs)-1].(*time.Time))
	}
	return out
}

// coerceField converts one decoded JSON value to the column's storage type.
func coerceField(c schema.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case schema.KindRef, schema.KindInt:
		switch n := v.(type) {
		case json.Number:
			id, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer", c.Name)
			}
			return id, nil
		case string:
			if strings.TrimSpace(n) == "" {
				return nil, nil
			}
			id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be an integer", c.Name)
			}
			return id, nil
		default:
			return nil, fmt.Errorf("%s must be an integer", c.Name)
		}
	case schema.KindDate:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a YYYY-MM-DD string", c.Name)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid date %q, want YYYY-MM-DD", c.Name, s)
		}
		return t, nil
	case schema.KindDecimal:
		var raw string
		switch n := v.(type) {
		case json.Number:
			raw = n.String()
		case string:
			raw = strings.TrimSpace(n)
		default:
			return nil, fmt.Errorf("%s must be a number", c.Name)
		}
		if raw == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid number %q", c.Name, raw)
		}
		return d.Round(2), nil
	case schema.KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", c.Name)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		if !c.InEnum(s) {
			return nil, fmt.Errorf("%s: %q is not one of %s", c.Name, s, strings.Join(c.Enum, "/"))
		}
		return s, nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", c.Name)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
}

func decodeBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	payload := map[string]any{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func entityID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// listEntity handles listing with search, sorting and pagination.
func (s *Server) listEntity(ent schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := parseListParams(r)

		args := []any{}
		where := ""
		if params.q != "" {
			ors := make([]string, 0, len(ent.Columns))
			for _, col := range ent.SearchColumns() {
				ors = append(ors, col+" ILIKE $1")
			}
			if len(ors) > 0 {
				where = " WHERE (" + strings.Join(ors, " OR ") + ")"
				args = append(args, "%"+params.q+"%")
			}
		}

		sqlStr := fmt.Sprintf("SELECT %s, COUNT(*) OVER() AS total_count FROM %s%s",
			strings.Join(selectColumns(ent), ", "), ent.Table, where)
		sqlStr += buildOrderBy(params.sort, ent.SortKeys())
		sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

		rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		defer rows.Close()

		items := []map[string]any{}
		var totalCount int
		for rows.Next() {
			hs := scanHolders(ent)
			if err := rows.Scan(append(hs, &totalCount)...); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			items = append(items, rowToMap(ent, hs))
		}
		if err := rows.Err(); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		sendListResponse(w, items, totalCount, params)
	}
}

// getEntity handles fetching a single record by id.
func (s *Server) getEntity(ent schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entityID(r)
		if !ok {
			http.Error(w, "invalid id", 400)
			return
		}

		sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
			strings.Join(selectColumns(ent), ", "), ent.Table, ent.IDColumn)
		hs := scanHolders(ent)
		err := s.DB.QueryRowContext(r.Context(), sqlStr, id).Scan(hs...)
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		writeJSON(w, http.StatusOK, rowToMap(ent, hs))
	}
}

// createEntity handles record creation. Missing required fields reject the
// whole submission; nothing is partially saved.
func (s *Server) createEntity(ent schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeBody(r)
		if err != nil {
			http.Error(w, "invalid JSON", 400)
			return
		}

		cols := make([]string, 0, len(ent.Columns))
		vals := make([]any, 0, len(ent.Columns))
		for _, c := range ent.Columns {
			v, err := coerceField(c, payload[c.Name])
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			if v == nil && c.Default != "" {
				v = c.Default
			}
			if v == nil && c.Required {
				http.Error(w, c.Name+" is required", 400)
				return
			}
			cols = append(cols, c.Name)
			vals = append(vals, v)
		}

		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			ent.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
			strings.Join(selectColumns(ent), ", "))

		hs := scanHolders(ent)
		if err := s.DB.QueryRowContext(r.Context(), sqlStr, vals...).Scan(hs...); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				http.Error(w, ent.Kind+" with this "+ent.NaturalKey+" already exists", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}

		writeJSON(w, http.StatusCreated, rowToMap(ent, hs))
	}
}

// updateEntity handles partial updates of the provided columns.
func (s *Server) updateEntity(ent schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entityID(r)
		if !ok {
			http.Error(w, "invalid id", 400)
			return
		}
		payload, err := decodeBody(r)
		if err != nil {
			http.Error(w, "invalid JSON", 400)
			return
		}

		sets := []string{}
		args := []any{}
		for _, c := range ent.Columns {
			raw, present := payload[c.Name]
			if !present {
				continue
			}
			v, err := coerceField(c, raw)
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			if v == nil && c.Required {
				http.Error(w, c.Name+" is required", 400)
				return
			}
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, len(args)))
		}
		if len(sets) == 0 {
			http.Error(w, "no fields to update", 400)
			return
		}
		if ent.Timestamps {
			sets = append(sets, "updated_at = now()")
		}

		args = append(args, id)
		sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
			ent.Table, strings.Join(sets, ", "), ent.IDColumn, len(args),
			strings.Join(selectColumns(ent), ", "))

		hs := scanHolders(ent)
		if err := s.DB.QueryRowContext(r.Context(), sqlStr, args...).Scan(hs...); err != nil {
			if err == sql.ErrNoRows {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if strings.Contains(strings.ToLower(err.Error()), "unique") {
				http.Error(w, ent.Kind+" with this "+ent.NaturalKey+" already exists", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), 500)
			return
		}

		writeJSON(w, http.StatusOK, rowToMap(ent, hs))
	}
}

// deleteEntity handles deletion. Dependent assignment, maintenance and
// disposal rows go with their parent via ON DELETE CASCADE.
func (s *Server) deleteEntity(ent schema.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entityID(r)
		if !ok {
			http.Error(w, "invalid id", 400)
			return
		}

		res, err := s.DB.ExecContext(r.Context(),
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ent.Table, ent.IDColumn), id)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// sendListResponse writes the standard list envelope.
func sendListResponse(w http.ResponseWriter, items []map[string]any, total int, params listParams) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"total":  total,
			"limit":  params.limit,
			"offset": params.offset,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
