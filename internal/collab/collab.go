package collab

import (
	"context"
	"time"
)

// Prompt is what the completer sees of a process.
type Prompt struct {
	ProcessID string
	Subject   string
	Content   string
	Memories  []string
	Valence   float64
	Arousal   float64
}

// Completion is a completer's answer.
type Completion struct {
	Text string
	// Done marks the process as finished.
	Done bool
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, p Prompt) (Completion, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, p Prompt) (Completion, error) {
	return f(ctx, p)
}

// Memory is one stored memory.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore persists and searches memories.
type MemoryStore interface {
	Store(ctx context.Context, m Memory) error
	// Retrieve returns the memory with id; ok is false when absent.
	Retrieve(ctx context.Context, id string) (m Memory, ok bool, err error)
	// Search returns up to limit memories matching query, best first.
	Search(ctx context.Context, query string, limit int) ([]Memory, error)
}
