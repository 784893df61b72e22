package catalog

import (
	"context"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"sortd/internal/services"
)

const (
	// FallbackCategory is assigned when the backend returns an empty label.
	FallbackCategory = "Uncategorized"
	// FallbackSubcategory is assigned when the backend returns an empty
	// subcategory label.
	FallbackSubcategory = "General"
)

// normalizeLabel reduces a human label to its comparison form: NFKC folded,
// lowercased, alphanumerics only, runs of whitespace collapsed to one space.
func normalizeLabel(label string) string {
	folded := norm.NFKC.String(label)
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// similarity is the normalized Levenshtein ratio between two strings:
// 1 - distance/max(len). Identical strings score 1, disjoint strings 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func taxonomyKey(normCategory, normSubcategory string) string {
	return normCategory + "\x1f" + normSubcategory
}

func (s *Store) loadTaxonomyCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadTaxonomyLocked(ctx)
}

func (s *Store) reloadTaxonomyLocked(ctx context.Context) error {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT id, category, subcategory, normalized_category, normalized_subcategory
		FROM category_taxonomy ORDER BY id`)
	if err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "load taxonomy", err)
	}
	defer rows.Close()

	s.taxonomy = s.taxonomy[:0]
	s.byID = make(map[int64]int)
	s.canonical = make(map[string]int64)
	for rows.Next() {
		var entry taxonomyEntry
		if scanErr := rows.Scan(&entry.id, &entry.category, &entry.subcategory,
			&entry.normCategory, &entry.normSubcategory); scanErr != nil {
			return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "scan taxonomy row", scanErr)
		}
		s.byID[entry.id] = len(s.taxonomy)
		s.canonical[taxonomyKey(entry.normCategory, entry.normSubcategory)] = entry.id
		s.taxonomy = append(s.taxonomy, entry)
	}
	if err := rows.Err(); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "iterate taxonomy", err)
	}

	aliasRows, err := s.conn().QueryContext(ctx, `
		SELECT taxonomy_id, alias_category, alias_subcategory FROM category_alias`)
	if err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "load aliases", err)
	}
	defer aliasRows.Close()

	s.aliases = make(map[string]int64)
	for aliasRows.Next() {
		var (
			taxonomyID                      int64
			aliasCategory, aliasSubcategory string
		)
		if scanErr := aliasRows.Scan(&taxonomyID, &aliasCategory, &aliasSubcategory); scanErr != nil {
			return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "scan alias row", scanErr)
		}
		s.aliases[taxonomyKey(normalizeLabel(aliasCategory), normalizeLabel(aliasSubcategory))] = taxonomyID
	}
	if err := aliasRows.Err(); err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "iterate aliases", err)
	}
	return nil
}

// ResolveCategory maps a raw (category, subcategory) pair onto the canonical
// taxonomy. Empty labels fall back to the defaults, known labels and aliases
// resolve directly, near-duplicates merge into the closest existing entry at
// or above the similarity threshold, and genuinely new pairs create a fresh
// taxonomy row. Resolution is idempotent: resolving the canonical result
// returns the same entry.
func (s *Store) ResolveCategory(ctx context.Context, category, subcategory string) (ResolvedCategory, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCategoryLocked(ctx, category, subcategory)
}

func (s *Store) resolveCategoryLocked(ctx context.Context, category, subcategory string) (ResolvedCategory, error) {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	if category == "" {
		category = FallbackCategory
	}
	if subcategory == "" {
		subcategory = FallbackSubcategory
	}

	normCategory := normalizeLabel(category)
	normSubcategory := normalizeLabel(subcategory)
	key := taxonomyKey(normCategory, normSubcategory)

	if id, ok := s.canonical[key]; ok {
		return s.resolvedByID(id), nil
	}
	if id, ok := s.aliases[key]; ok {
		if _, known := s.byID[id]; known {
			return s.resolvedByID(id), nil
		}
	}

	if best, score := s.closestEntry(normCategory, normSubcategory); best >= 0 && score >= s.similarityThreshold {
		entry := s.taxonomy[best]
		if err := s.insertAliasLocked(ctx, entry.id, category, subcategory); err != nil {
			return ResolvedCategory{}, err
		}
		s.aliases[key] = entry.id
		return ResolvedCategory{TaxonomyID: entry.id, Category: entry.category, Subcategory: entry.subcategory}, nil
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(ctx, `
		INSERT INTO category_taxonomy (category, subcategory, normalized_category, normalized_subcategory, frequency, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (normalized_category, normalized_subcategory) DO NOTHING`,
		category, subcategory, normCategory, normSubcategory, now)
	if err != nil {
		return ResolvedCategory{}, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "insert taxonomy entry", err)
	}

	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		// Conflict path: another writer created the row first.
		row := s.conn().QueryRowContext(ctx, `
			SELECT id FROM category_taxonomy
			WHERE normalized_category = ? AND normalized_subcategory = ?`,
			normCategory, normSubcategory)
		if scanErr := row.Scan(&id); scanErr != nil {
			return ResolvedCategory{}, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "lookup taxonomy entry", scanErr)
		}
	}

	entry := taxonomyEntry{
		id:              id,
		category:        category,
		subcategory:     subcategory,
		normCategory:    normCategory,
		normSubcategory: normSubcategory,
	}
	s.byID[id] = len(s.taxonomy)
	s.canonical[key] = id
	s.taxonomy = append(s.taxonomy, entry)
	if s.tx != nil {
		s.taxonomyDirty = true
	}
	return ResolvedCategory{TaxonomyID: id, Category: category, Subcategory: subcategory}, nil
}

func (s *Store) resolvedByID(id int64) ResolvedCategory {
	entry := s.taxonomy[s.byID[id]]
	return ResolvedCategory{TaxonomyID: entry.id, Category: entry.category, Subcategory: entry.subcategory}
}

// closestEntry scores the combined label against every known taxonomy entry
// and returns the index and score of the best match, or (-1, 0) when the
// taxonomy is empty.
func (s *Store) closestEntry(normCategory, normSubcategory string) (int, float64) {
	combined := normCategory + " " + normSubcategory
	bestIdx := -1
	bestScore := 0.0
	for i, entry := range s.taxonomy {
		score := similarity(combined, entry.normCategory+" "+entry.normSubcategory)
		if score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	return bestIdx, bestScore
}

func (s *Store) insertAliasLocked(ctx context.Context, taxonomyID int64, aliasCategory, aliasSubcategory string) error {
	_, err := s.execWithRetry(ctx, `
		INSERT INTO category_alias (taxonomy_id, alias_category, alias_subcategory, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (alias_category, alias_subcategory) DO NOTHING`,
		taxonomyID, aliasCategory, aliasSubcategory, timestamp(time.Now()))
	if err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "insert alias", err)
	}
	return nil
}

func (s *Store) bumpFrequencyLocked(ctx context.Context, taxonomyID int64) error {
	if taxonomyID <= 0 {
		return nil
	}
	_, err := s.execWithRetry(ctx, `
		UPDATE category_taxonomy SET frequency = frequency + 1 WHERE id = ?`, taxonomyID)
	if err != nil {
		return services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "bump frequency", err)
	}
	return nil
}

// TopCategories returns up to n canonical pairs ordered by how often they
// have been assigned, most frequent first, newer entries breaking ties.
func (s *Store) TopCategories(ctx context.Context, n int) ([]CategoryPair, error) {
	ctx = ensureContext(ctx)
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn().QueryContext(ctx, `
		SELECT category, subcategory FROM category_taxonomy
		WHERE frequency > 0
		ORDER BY frequency DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "query top categories", err)
	}
	defer rows.Close()

	var pairs []CategoryPair
	for rows.Next() {
		var pair CategoryPair
		if scanErr := rows.Scan(&pair.Category, &pair.Subcategory); scanErr != nil {
			return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "scan category pair", scanErr)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "iterate top categories", err)
	}
	return pairs, nil
}

// CategoriesForExtension returns the distinct labels previously assigned to
// files sharing the given extension, most common first. The extension match
// is a case-insensitive suffix comparison against cached file names.
func (s *Store) CategoriesForExtension(ctx context.Context, ext string, limit int) ([]CategoryPair, error) {
	ctx = ensureContext(ctx)
	ext = strings.TrimSpace(strings.ToLower(ext))
	if ext == "" || limit <= 0 {
		return nil, nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn().QueryContext(ctx, `
		SELECT category, subcategory, COUNT(*) AS uses
		FROM file_categorization
		WHERE file_type = 'F' AND category != '' AND LOWER(file_name) LIKE '%' || ? ESCAPE '\'
		GROUP BY category, subcategory
		ORDER BY uses DESC, MAX(updated_at) DESC
		LIMIT ?`, escapeLike(ext), limit)
	if err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "query extension categories", err)
	}
	defer rows.Close()

	var pairs []CategoryPair
	for rows.Next() {
		var (
			pair CategoryPair
			uses int64
		)
		if scanErr := rows.Scan(&pair.Category, &pair.Subcategory, &uses); scanErr != nil {
			return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "scan extension category", scanErr)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrDatabase, "catalog", "taxonomy", "iterate extension categories", err)
	}
	return pairs, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
