package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"asset-inventory-api/internal/schema"
)

// DateLayout is the only accepted wire format for date fields.
const DateLayout = "2006-01-02"

// FieldError records a per-field parse failure. Any field error is fatal to
// its row in later pipeline stages.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ParsedRow is the partially-typed output of one CSV record. Fields holds
// scalar values keyed by database column (nil for null); Refs holds the raw
// natural-key strings of foreign-key columns, left for the resolver.
type ParsedRow struct {
	Fields map[string]any
	Refs   map[string]string
}

// ParseRow converts one CSV record (header -> raw string) into typed fields
// for the given entity. Missing and empty values become null for optional
// columns and a field error for required ones. Unrecognized enum values are
// rejected rather than silently nulled, so bad data stays visible to the
// operator.
func ParseRow(ent schema.Entity, record map[string]string) (ParsedRow, []FieldError) {
	row := ParsedRow{
		Fields: make(map[string]any, len(ent.Columns)),
		Refs:   make(map[string]string),
	}
	var errs []FieldError

	for _, c := range ent.Columns {
		raw := strings.TrimSpace(record[c.CSVHeader()])

		if c.Kind == schema.KindRef {
			if raw == "" {
				if c.Required {
					errs = append(errs, FieldError{c.CSVHeader(), "required reference is missing"})
				}
				row.Fields[c.Name] = nil
				continue
			}
			row.Refs[c.Name] = raw
			continue
		}

		if raw == "" {
			switch {
			case c.Required:
				errs = append(errs, FieldError{c.CSVHeader(), "required field is missing"})
			case c.Default != "":
				row.Fields[c.Name] = c.Default
			default:
				row.Fields[c.Name] = nil
			}
			continue
		}

		v, err := parseScalar(c, raw)
		if err != nil {
			errs = append(errs, FieldError{c.CSVHeader(), err.Error()})
			continue
		}
		row.Fields[c.Name] = v
	}

	return row, errs
}

func parseScalar(c schema.Column, raw string) (any, error) {
	switch c.Kind {
	case schema.KindDate:
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
		}
		return t, nil
	case schema.KindDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		return d.Round(2), nil
	case schema.KindEnum:
		if !c.InEnum(raw) {
			return nil, fmt.Errorf("%q is not one of %s", raw, strings.Join(c.Enum, "/"))
		}
		return raw, nil
	case schema.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	default:
		return raw, nil
	}
}
