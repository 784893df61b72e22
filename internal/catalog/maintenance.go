package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"sortd/internal/services"
)

// Stats summarizes the catalog for the cache stats command.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	row := s.conn().QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN file_type = 'F' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN file_type = 'D' THEN 1 ELSE 0 END), 0),
		       COALESCE(MIN(created_at), ''),
		       COALESCE(MAX(updated_at), '')
		FROM file_categorization`)
	if err := row.Scan(&stats.TotalEntries, &stats.FileEntries, &stats.DirectoryEntries,
		&stats.OldestEntry, &stats.NewestEntry); err != nil {
		return Stats{}, services.Wrap(services.ErrDatabase, "catalog", "stats", "scan entry counts", err)
	}

	row = s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM category_taxonomy`)
	if err := row.Scan(&stats.TaxonomyEntries); err != nil {
		return Stats{}, services.Wrap(services.ErrDatabase, "catalog", "stats", "scan taxonomy count", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DatabaseBytes = info.Size()
	}
	return stats, nil
}

// ClearAll removes every categorization, taxonomy entry, and alias.
func (s *Store) ClearAll(ctx context.Context) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return services.Wrap(services.ErrInvalidState, "catalog", "clear", "transaction open", nil)
	}

	for _, table := range []string{"category_alias", "file_categorization", "category_taxonomy"} {
		if _, err := s.execWithRetry(ctx, "DELETE FROM "+table); err != nil {
			return services.Wrap(services.ErrDatabase, "catalog", "clear", fmt.Sprintf("clear %s", table), err)
		}
	}
	return s.reloadTaxonomyLocked(ctx)
}

// ClearOlderThan removes categorizations not updated within the given number
// of days and returns how many rows were pruned.
func (s *Store) ClearOlderThan(ctx context.Context, days int) (int64, error) {
	ctx = ensureContext(ctx)
	if days < 0 {
		return 0, services.Wrap(services.ErrValidation, "catalog", "prune", "days must be non-negative", nil)
	}
	cutoff := timestamp(time.Now().AddDate(0, 0, -days))

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, `
		DELETE FROM file_categorization WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, services.Wrap(services.ErrDatabase, "catalog", "prune", "delete stale entries", err)
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrDatabase, "catalog", "prune", "count pruned rows", err)
	}
	return pruned, nil
}

// Optimize compacts the database file and refreshes the query planner
// statistics. It must run outside a transaction.
func (s *Store) Optimize(ctx context.Context) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return services.Wrap(services.ErrInvalidState, "catalog", "optimize", "transaction open", nil)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "optimize", "vacuum", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "optimize", "analyze", err)
	}
	return nil
}
