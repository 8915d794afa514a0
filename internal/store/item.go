package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

const itemColumns = `id, url, metadata, description, tags, flags, last_update_ts, created_ts, ` +
	`embeddable, embedding, content_hash, file_path, file_mtime, file_hash, access_count`

// itemColumnNames lists the same columns individually, for callers that
// need to qualify them with a table alias (e.g. a query joining items_fts).
var itemColumnNames = []string{
	"id", "url", "metadata", "description", "tags", "flags", "last_update_ts", "created_ts",
	"embeddable", "embedding", "content_hash", "file_path", "file_mtime", "file_hash", "access_count",
}

// QualifiedItemColumns returns itemColumnNames each prefixed with
// "<alias>.", comma-joined, for use in a SELECT that joins other tables.
func QualifiedItemColumns(alias string) string {
	out := make([]string, len(itemColumnNames))
	for i, c := range itemColumnNames {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// Insert assigns id, created_ts and last_update_ts, canonicalises tags, and
// fails DuplicateUrl if the url already exists.
func (s *Store) Insert(ctx context.Context, it *model.Item) (*model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := model.CanonicalizeTags(model.DecodeTags(it.Tags))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeBadTagToken, "while inserting item", err)
	}

	now := time.Now().UTC()
	res, err := s.execContext(ctx, fmt.Sprintf(`
		INSERT INTO items (url, metadata, description, tags, flags, last_update_ts, created_ts,
			embeddable, embedding, content_hash, file_path, file_mtime, file_hash, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), it.URL, it.Metadata, it.Description, canonical, it.Flags, now.Unix(), now.Unix(),
		boolToInt(it.Embeddable), it.Embedding, it.ContentHash, it.FilePath, it.FileMtime, it.FileHash, it.AccessCount)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeDuplicateURL, fmt.Sprintf("url already exists: %s", it.URL), err)
		}
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while inserting item", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while inserting item", err)
	}
	return s.getLocked(ctx, id)
}

// Get fetches an item by id, failing NotFound.
func (s *Store) Get(ctx context.Context, id int64) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(ctx, id)
}

func (s *Store) getLocked(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM items WHERE id = ?`, itemColumns), id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("item %d not found", id), nil)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while fetching item %d", id), err)
	}
	return it, nil
}

// GetByURL fetches an item by its url. Returns (nil, nil) if absent.
func (s *Store) GetByURL(ctx context.Context, url string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM items WHERE url = ?`, itemColumns), url)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while fetching item by url", err)
	}
	return it, nil
}

// GetByMetadata fetches an item by its metadata (display name). Returns
// (nil, nil) if absent. Used by the importer, which treats an imported
// file's declared name as its identity across repeated imports.
func (s *Store) GetByMetadata(ctx context.Context, name string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM items WHERE metadata = ?`, itemColumns), name)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while fetching item by metadata", err)
	}
	return it, nil
}

// Update replaces all mutable columns atomically, always rewriting
// last_update_ts. Fails NotFound if the id is absent.
func (s *Store) Update(ctx context.Context, it *model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, err := model.CanonicalizeTags(model.DecodeTags(it.Tags))
	if err != nil {
		return apperr.Wrap(apperr.CodeBadTagToken, fmt.Sprintf("while updating item %d", it.ID), err)
	}

	now := time.Now().UTC()
	res, err := s.execContext(ctx, `
		UPDATE items SET url = ?, metadata = ?, description = ?, tags = ?, flags = ?,
			last_update_ts = ?, embeddable = ?, embedding = ?, content_hash = ?,
			file_path = ?, file_mtime = ?, file_hash = ?
		WHERE id = ?
	`, it.URL, it.Metadata, it.Description, canonical, it.Flags, now.Unix(),
		boolToInt(it.Embeddable), it.Embedding, it.ContentHash, it.FilePath, it.FileMtime, it.FileHash, it.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.CodeDuplicateURL, fmt.Sprintf("url already exists: %s", it.URL), err)
		}
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while updating item %d", it.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while updating item %d", it.ID), err)
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("item %d not found", it.ID), nil)
	}
	it.LastUpdateTS = now
	return nil
}

// Delete removes an item, cascading to the FTS mirror via trigger.
// Fails NotFound if the id is absent.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.execContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while deleting item %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while deleting item %d", id), err)
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("item %d not found", id), nil)
	}
	return nil
}

// RecordAccess bumps the access counter and last_update_ts without
// touching content.
func (s *Store) RecordAccess(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.execContext(ctx,
		`UPDATE items SET access_count = access_count + 1, last_update_ts = ? WHERE id = ?`, now.Unix(), id)
	if err != nil {
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while recording access for item %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while recording access for item %d", id), err)
	}
	if n == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("item %d not found", id), nil)
	}
	return nil
}

// AllTags returns every non-system tag token with its frequency across
// all items.
func (s *Store) AllTags(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM items`)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while listing tags", err)
	}
	defer rows.Close()

	freq := make(map[string]int)
	for rows.Next() {
		var canonical string
		if err := rows.Scan(&canonical); err != nil {
			return nil, apperr.Wrap(apperr.CodeSchemaError, "while listing tags", err)
		}
		for _, tok := range model.DecodeTags(canonical) {
			if model.IsSystemTag(tok) {
				continue
			}
			freq[tok]++
		}
	}
	return freq, rows.Err()
}

// RelatedTags returns the frequency of every tag co-occurring with token
// across items that carry it.
func (s *Store) RelatedTags(ctx context.Context, token string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT tags FROM items WHERE tags LIKE ?`, "%,"+token+",%")
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while listing tags related to %s", token), err)
	}
	defer rows.Close()

	freq := make(map[string]int)
	for rows.Next() {
		var canonical string
		if err := rows.Scan(&canonical); err != nil {
			return nil, apperr.Wrap(apperr.CodeSchemaError, fmt.Sprintf("while listing tags related to %s", token), err)
		}
		if !model.ContainsToken(canonical, token) {
			continue // LIKE is a coarse pre-filter; confirm exact token match
		}
		for _, tok := range model.DecodeTags(canonical) {
			if tok == token {
				continue
			}
			freq[tok]++
		}
	}
	return freq, rows.Err()
}

// RandomSample returns up to n items chosen uniformly at random.
func (s *Store) RandomSample(ctx context.Context, n int) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM items ORDER BY RANDOM() LIMIT ?`, itemColumns), n)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeSchemaError, "while sampling items", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItem(row scannable) (*model.Item, error) {
	it := &model.Item{}
	var lastUpdate int64
	var createdTS, fileMtime sql.NullInt64
	var embeddable int64
	var embedding, contentHash []byte
	var filePath, fileHash sql.NullString

	err := row.Scan(&it.ID, &it.URL, &it.Metadata, &it.Description, &it.Tags, &it.Flags,
		&lastUpdate, &createdTS, &embeddable, &embedding, &contentHash, &filePath, &fileMtime, &fileHash, &it.AccessCount)
	if err != nil {
		return nil, err
	}

	it.LastUpdateTS = time.Unix(lastUpdate, 0).UTC()
	if createdTS.Valid {
		ts := time.Unix(createdTS.Int64, 0).UTC()
		it.CreatedTS = &ts
	}
	it.Embeddable = embeddable != 0
	if len(embedding) > 0 {
		it.Embedding = embedding
	}
	if len(contentHash) > 0 {
		it.ContentHash = contentHash
	}
	if filePath.Valid {
		v := filePath.String
		it.FilePath = &v
	}
	if fileMtime.Valid {
		v := fileMtime.Int64
		it.FileMtime = &v
	}
	if fileHash.Valid {
		v := fileHash.String
		it.FileHash = &v
	}
	return it, nil
}

func scanItems(rows *sql.Rows) ([]*model.Item, error) {
	var out []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
