package catalog

import (
	"context"

	"sortd/internal/services"
)

// Tx scopes a batch of catalog writes to a single SQLite transaction. Close
// rolls back unless Commit ran, so a deferred Close makes any early return
// atomic.
type Tx struct {
	store *Store
	done  bool
}

// Begin opens a write transaction. Only one may be open at a time; the store
// serializes all access through it until Commit or Close.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, services.Wrap(services.ErrInvalidState, "catalog", "begin", "transaction already open", nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "begin", "begin transaction", err)
	}
	s.tx = tx
	s.taxonomyDirty = false
	return &Tx{store: s}, nil
}

// Commit makes the batched writes durable.
func (t *Tx) Commit() error {
	if t == nil || t.done {
		return nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t.done = true
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	s.taxonomyDirty = false
	if err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "commit", "commit transaction", err)
	}
	return nil
}

// Close rolls back the transaction if it was not committed. The in-memory
// taxonomy cache is reloaded after a rollback since taxonomy rows created
// inside the transaction no longer exist.
func (t *Tx) Close() error {
	if t == nil || t.done {
		return nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t.done = true
	if s.tx == nil {
		return nil
	}
	rollbackErr := s.tx.Rollback()
	s.tx = nil
	if s.taxonomyDirty {
		if err := s.reloadTaxonomyLocked(context.Background()); err != nil {
			return err
		}
		s.taxonomyDirty = false
	}
	if rollbackErr != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "rollback", "rollback transaction", rollbackErr)
	}
	return nil
}
