package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sortd/internal/services"
)

// Save resolves the entry's labels against the taxonomy, upserts the
// categorization row keyed by (dir_path, file_name, file_type), and bumps the
// canonical entry's usage frequency. The stored entry carries the canonical
// labels, which may differ from the raw input when a fuzzy merge occurred.
func (s *Store) Save(ctx context.Context, entry Entry) (Entry, error) {
	ctx = ensureContext(ctx)
	if err := validateEntryKey(entry); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.resolveCategoryLocked(ctx, entry.Category, entry.Subcategory)
	if err != nil {
		return Entry{}, err
	}
	entry.Category = resolved.Category
	entry.Subcategory = resolved.Subcategory
	entry.TaxonomyID = resolved.TaxonomyID

	now := time.Now()
	_, err = s.execWithRetry(ctx, `
		INSERT INTO file_categorization
			(dir_path, file_name, file_type, category, subcategory, taxonomy_id, used_hints, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dir_path, file_name, file_type) DO UPDATE SET
			category = excluded.category,
			subcategory = excluded.subcategory,
			taxonomy_id = excluded.taxonomy_id,
			used_hints = excluded.used_hints,
			updated_at = excluded.updated_at`,
		entry.DirPath, entry.Name, string(entry.Type),
		entry.Category, entry.Subcategory, nullableInt64(entry.TaxonomyID),
		boolToInt(entry.UsedHints), timestamp(now), timestamp(now))
	if err != nil {
		return Entry{}, services.Wrap(services.ErrDatabase, "catalog", "save", "upsert categorization", err)
	}

	if err := s.bumpFrequencyLocked(ctx, entry.TaxonomyID); err != nil {
		return Entry{}, err
	}

	saved, err := s.findOneLocked(ctx, entry.DirPath, entry.Name, entry.Type)
	if err != nil {
		return Entry{}, err
	}
	return saved, nil
}

// FindOne looks up a single cached categorization. Missing entries return an
// error tagged services.ErrNotFound.
func (s *Store) FindOne(ctx context.Context, dirPath, name string, fileType FileType) (Entry, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOneLocked(ctx, dirPath, name, fileType)
}

func (s *Store) findOneLocked(ctx context.Context, dirPath, name string, fileType FileType) (Entry, error) {
	row := s.conn().QueryRowContext(ctx, `
		SELECT id, dir_path, file_name, file_type, category, subcategory,
		       COALESCE(taxonomy_id, 0), used_hints, created_at, updated_at
		FROM file_categorization
		WHERE dir_path = ? AND file_name = ? AND file_type = ?`,
		dirPath, name, string(fileType))

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, services.Wrap(services.ErrNotFound, "catalog", "find",
			fmt.Sprintf("no entry for %s in %s", name, dirPath), nil)
	}
	if err != nil {
		return Entry{}, services.Wrap(services.ErrDatabase, "catalog", "find", "scan entry", err)
	}
	return entry, nil
}

// Exists reports whether an entry for the (dir, name, type) triple is cached.
func (s *Store) Exists(ctx context.Context, dirPath, name string, fileType FileType) (bool, error) {
	_, err := s.FindOne(ctx, dirPath, name, fileType)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, services.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Find returns entries matching the query, ordered by directory then name.
func (s *Store) Find(ctx context.Context, q Query) ([]Entry, error) {
	ctx = ensureContext(ctx)

	// Every persisted row is served from the cache by definition, so a true
	// filter matches everything and a false filter matches nothing.
	if q.FromCache != nil && !*q.FromCache {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		clauses []string
		args    []any
	)
	if q.DirPath != "" {
		clauses = append(clauses, "dir_path = ?")
		args = append(args, q.DirPath)
	}
	if q.Type != nil {
		clauses = append(clauses, "file_type = ?")
		args = append(args, string(*q.Type))
	}
	if q.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, q.Category)
	}
	if q.UsedHints != nil {
		clauses = append(clauses, "used_hints = ?")
		args = append(args, boolToInt(*q.UsedHints))
	}

	query := `
		SELECT id, dir_path, file_name, file_type, category, subcategory,
		       COALESCE(taxonomy_id, 0), used_hints, created_at, updated_at
		FROM file_categorization`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY dir_path, file_name"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "find", "query entries", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrDatabase, "catalog", "find", "scan entry", scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "find", "iterate entries", err)
	}
	return entries, nil
}

// FindByDirectory returns every cached entry for a directory.
func (s *Store) FindByDirectory(ctx context.Context, dirPath string) ([]Entry, error) {
	return s.Find(ctx, Query{DirPath: dirPath})
}

// Remove deletes a single cached categorization. Removing an entry that does
// not exist is not an error.
func (s *Store) Remove(ctx context.Context, dirPath, name string, fileType FileType) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.execWithRetry(ctx, `
		DELETE FROM file_categorization
		WHERE dir_path = ? AND file_name = ? AND file_type = ?`,
		dirPath, name, string(fileType)); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "remove", "delete entry", err)
	}
	return nil
}

// RemoveByDirectory deletes every cached entry under a directory and returns
// how many rows were removed.
func (s *Store) RemoveByDirectory(ctx context.Context, dirPath string) (int64, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execWithRetry(ctx, `DELETE FROM file_categorization WHERE dir_path = ?`, dirPath)
	if err != nil {
		return 0, services.Wrap(services.ErrDatabase, "catalog", "remove", "delete directory entries", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrDatabase, "catalog", "remove", "count removed rows", err)
	}
	return removed, nil
}

// RemoveEmptyCategorizations deletes rows whose category is blank, returning
// the removed entries so callers can requeue them.
func (s *Store) RemoveEmptyCategorizations(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn().QueryContext(ctx, `
		SELECT id, dir_path, file_name, file_type, category, subcategory,
		       COALESCE(taxonomy_id, 0), used_hints, created_at, updated_at
		FROM file_categorization
		WHERE TRIM(category) = ''`)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "sweep", "query empty categorizations", err)
	}

	var empties []Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			rows.Close()
			return nil, services.Wrap(services.ErrDatabase, "catalog", "sweep", "scan entry", scanErr)
		}
		empties = append(empties, entry)
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "sweep", "iterate entries", iterErr)
	}
	if len(empties) == 0 {
		return nil, nil
	}

	if _, err := s.execWithRetry(ctx, `
		DELETE FROM file_categorization WHERE TRIM(category) = ''`); err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "sweep", "delete empty categorizations", err)
	}
	return empties, nil
}

// DirectoryStyle reports whether the most recently updated entry in a
// directory was categorized with consistency hints. It returns nil when the
// directory has no cached entries yet.
func (s *Store) DirectoryStyle(ctx context.Context, dirPath string) (*bool, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn().QueryRowContext(ctx, `
		SELECT used_hints FROM file_categorization
		WHERE dir_path = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`, dirPath)

	var usedHints int
	err := row.Scan(&usedHints)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "find", "scan directory style", err)
	}
	style := usedHints != 0
	return &style, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry      Entry
		fileType   string
		usedHints  int
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&entry.ID, &entry.DirPath, &entry.Name, &fileType,
		&entry.Category, &entry.Subcategory, &entry.TaxonomyID,
		&usedHints, &createdRaw, &updatedRaw); err != nil {
		return Entry{}, err
	}
	entry.Type = FileType(fileType)
	entry.UsedHints = usedHints != 0
	entry.FromCache = true
	if t, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = t
	}
	return entry, nil
}

func validateEntryKey(entry Entry) error {
	if strings.TrimSpace(entry.DirPath) == "" {
		return services.Wrap(services.ErrValidation, "catalog", "save", "dir path is required", nil)
	}
	if strings.TrimSpace(entry.Name) == "" {
		return services.Wrap(services.ErrValidation, "catalog", "save", "file name is required", nil)
	}
	if entry.Type != FileTypeFile && entry.Type != FileTypeDirectory {
		return services.Wrap(services.ErrValidation, "catalog", "save",
			fmt.Sprintf("unknown file type %q", entry.Type), nil)
	}
	return nil
}
