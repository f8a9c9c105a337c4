package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Store is the narrow slice of the entity store the import pipeline needs.
// The production implementation wraps a pgx transaction so every lookup and
// insert of a batch shares one commit scope; tests substitute an in-memory
// fake.
type Store interface {
	// Lookup finds the row whose keyColumn equals key and returns its
	// surrogate id. When several rows share the key the lowest id wins.
	Lookup(ctx context.Context, table, idColumn, keyColumn, key string) (int64, bool, error)
	// LookupID checks that a row with the given surrogate id exists.
	LookupID(ctx context.Context, table, idColumn string, id int64) (int64, bool, error)
	// Insert stages one row inside the batch transaction.
	Insert(ctx context.Context, table string, columns []string, values []any) error
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) Lookup(ctx context.Context, table, idColumn, keyColumn, key string) (int64, bool, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY %s LIMIT 1", idColumn, table, keyColumn, idColumn)
	var id int64
	err := s.tx.QueryRow(ctx, q, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *txStore) LookupID(ctx context.Context, table, idColumn string, id int64) (int64, bool, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", idColumn, table, idColumn)
	var got int64
	err := s.tx.QueryRow(ctx, q, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return got, true, nil
}

func (s *txStore) Insert(ctx context.Context, table string, columns []string, values []any) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	_, err := s.tx.Exec(ctx, q, values...)
	return err
}
