// Package importer implements the CSV bulk-import pipeline: it streams rows,
// parses fields, reconciles natural-key references against the store and
// applies a per-entity admission policy, committing every accepted row in one
// transaction. A store or I/O failure aborts and rolls back the whole batch;
// per-row validation and reference failures only skip the row.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"asset-inventory-api/internal/schema"
)

// DefaultMaxErrors caps how many row messages a Result carries.
const DefaultMaxErrors = 10

// Options tunes one import run.
type Options struct {
	// MaxErrors caps the collected row messages; DefaultMaxErrors when <= 0.
	MaxErrors int
	// Aliases maps lowercased alternate header names to canonical headers,
	// typically loaded from a Mapping file.
	Aliases map[string]string
}

// Result summarizes one import batch.
type Result struct {
	Accepted int      `json:"accepted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

func (r *Result) note(max int, format string, args ...any) {
	if len(r.Errors) < max {
		r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	}
}

// Run imports one CSV batch for the given entity inside a single
// transaction. The first CSV row is the header. On any returned error the
// transaction has been rolled back and nothing was written.
func Run(ctx context.Context, pool *pgxpool.Pool, ent schema.Entity, r io.Reader, opts Options) (Result, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := runBatch(ctx, &txStore{tx: tx}, ent, r, opts)
	if err != nil {
		return res, err
	}
	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit import batch: %w", err)
	}
	return res, nil
}

// runBatch drives the per-row algorithm against an already-open transaction
// scope. Split out so tests can run the pipeline against a fake store.
func runBatch(ctx context.Context, store Store, ent schema.Entity, r io.Reader, opts Options) (Result, error) {
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}

	var res Result

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read CSV header: %w", err)
	}
	columns := canonicalHeader(ent, header, opts.Aliases)

	resolver := NewResolver(store)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read CSV row %d: %w", line+1, err)
		}
		line++

		record := make(map[string]string, len(columns))
		empty := true
		for i, name := range columns {
			if name == "" || i >= len(rec) {
				continue
			}
			record[name] = rec[i]
			if strings.TrimSpace(rec[i]) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		row, ferrs := ParseRow(ent, record)
		if len(ferrs) > 0 {
			res.Skipped++
			res.note(maxErrors, "row %d: %s", line, ferrs[0].Error())
			continue
		}

		skip, err := resolveRefs(ctx, resolver, ent, &row, &res, maxErrors, line)
		if err != nil {
			return res, err
		}
		if skip {
			res.Skipped++
			continue
		}

		if ent.Policy == schema.PolicyDedupNaturalKey && ent.NaturalKey != "" {
			key, _ := row.Fields[ent.NaturalKey].(string)
			if key != "" {
				_, exists, err := store.Lookup(ctx, ent.Table, ent.IDColumn, ent.NaturalKey, key)
				if err != nil {
					return res, err
				}
				if exists {
					res.Skipped++
					res.note(maxErrors, "row %d: %s %q already exists", line, ent.NaturalKey, key)
					continue
				}
			}
		}

		cols := make([]string, 0, len(ent.Columns))
		vals := make([]any, 0, len(ent.Columns))
		for _, c := range ent.Columns {
			cols = append(cols, c.Name)
			vals = append(vals, row.Fields[c.Name])
		}
		if err := store.Insert(ctx, ent.Table, cols, vals); err != nil {
			return res, fmt.Errorf("row %d: insert into %s: %w", line, ent.Table, err)
		}
		res.Accepted++
	}

	return res, nil
}

// resolveRefs fills foreign-key fields from their raw natural-key strings.
// Under the reference-required policy an unresolvable reference skips the
// row; elsewhere it degrades to null, matching manual form entry.
func resolveRefs(ctx context.Context, resolver *Resolver, ent schema.Entity, row *ParsedRow, res *Result, maxErrors, line int) (bool, error) {
	for _, c := range ent.Columns {
		raw, ok := row.Refs[c.Name]
		if !ok {
			continue
		}
		id, found, err := resolver.Resolve(ctx, c.Ref, raw)
		if err != nil {
			return false, err
		}
		if !found {
			if ent.Policy == schema.PolicyReferenceRequired {
				res.note(maxErrors, "row %d: %s %q not found", line, c.CSVHeader(), raw)
				return true, nil
			}
			row.Fields[c.Name] = nil
			continue
		}
		row.Fields[c.Name] = id
	}
	return false, nil
}

// canonicalHeader maps the raw header row onto the entity's column headers,
// case-insensitively and through the alias table. Unrecognized headers
// (including exported surrogate-id columns) are ignored.
func canonicalHeader(ent schema.Entity, header []string, aliases map[string]string) []string {
	known := make(map[string]string, len(ent.Columns)*2)
	for _, c := range ent.Columns {
		known[strings.ToLower(c.CSVHeader())] = c.CSVHeader()
		known[strings.ToLower(c.Name)] = c.CSVHeader()
	}

	out := make([]string, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := aliases[name]; ok {
			name = strings.ToLower(alias)
		}
		out[i] = known[name]
	}
	return out
}
