package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/triadic/internal/canon"
	"github.com/roach88/triadic/internal/collab"
)

// MemoryID derives a content-addressed id for a memory's content.
func MemoryID(content string) string {
	return canon.MustHash(canon.DomainMemory, map[string]string{"content": content})[:16]
}

// Memories is the SQLite implementation of collab.MemoryStore.
type Memories struct {
	s *Store
}

var _ collab.MemoryStore = (*Memories)(nil)

// Memories returns the memory store view of s.
func (s *Store) Memories() *Memories {
	return &Memories{s: s}
}

// Store implements collab.MemoryStore. An empty id is replaced by
// MemoryID(content); a zero CreatedAt by the current time. Storing an
// existing id replaces it.
func (m *Memories) Store(ctx context.Context, mem collab.Memory) error {
	if mem.ID == "" {
		mem.ID = MemoryID(mem.Content)
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now().UTC()
	}
	if mem.Tags == nil {
		mem.Tags = []string{}
	}
	tags, err := json.Marshal(mem.Tags)
	if err != nil {
		return fmt.Errorf("store memory %s: %w", mem.ID, err)
	}
	hash, err := canon.Hash(canon.DomainMemory, mem)
	if err != nil {
		return fmt.Errorf("store memory %s: %w", mem.ID, err)
	}
	_, err = m.s.db.ExecContext(ctx, `
		INSERT INTO memories (id, content, tags, created_at, hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			tags = excluded.tags,
			created_at = excluded.created_at,
			hash = excluded.hash
	`, mem.ID, mem.Content, string(tags), mem.CreatedAt.UTC().Format(time.RFC3339Nano), hash)
	if err != nil {
		return fmt.Errorf("store memory %s: %w", mem.ID, err)
	}
	return nil
}

// Retrieve implements collab.MemoryStore.
func (m *Memories) Retrieve(ctx context.Context, id string) (collab.Memory, bool, error) {
	row := m.s.db.QueryRowContext(ctx, "SELECT id, content, tags, created_at FROM memories WHERE id = ?", id)
	mem, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return collab.Memory{}, false, nil
	}
	if err != nil {
		return collab.Memory{}, false, fmt.Errorf("retrieve memory %s: %w", id, err)
	}
	return mem, true, nil
}

// Search implements collab.MemoryStore. Any query word found in the
// content or equal to a tag matches (ASCII case-insensitive). Results are
// oldest first.
func (m *Memories) Search(ctx context.Context, query string, limit int) ([]collab.Memory, error) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return []collab.Memory{}, nil
	}
	var (
		clauses []string
		args    []any
	)
	for _, w := range words {
		clauses = append(clauses, "content LIKE ? ESCAPE '\\' OR tags LIKE ? ESCAPE '\\'")
		esc := escapeLike(w)
		args = append(args, "%"+esc+"%", `%"`+esc+`"%`)
	}
	q := "SELECT id, content, tags, created_at FROM memories WHERE " +
		strings.Join(clauses, " OR ") + " ORDER BY created_at ASC, id COLLATE BINARY ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := m.s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	out := []collab.Memory{}
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("search memories: %w", err)
		}
		out = append(out, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(r rowScanner) (collab.Memory, error) {
	var (
		mem           collab.Memory
		tags, created string
	)
	if err := r.Scan(&mem.ID, &mem.Content, &tags, &created); err != nil {
		return collab.Memory{}, err
	}
	if err := json.Unmarshal([]byte(tags), &mem.Tags); err != nil {
		return collab.Memory{}, fmt.Errorf("decode tags: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return collab.Memory{}, fmt.Errorf("decode created_at: %w", err)
	}
	mem.CreatedAt = t
	return mem, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
