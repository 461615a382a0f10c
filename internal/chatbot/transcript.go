package chatbot

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
)

const defaultTranscriptLimit = 50

// SQLTranscript stores chat lines in the chat_messages table.
type SQLTranscript struct {
	db *sql.DB
}

func NewSQLTranscript(db *sql.DB) *SQLTranscript {
	if db == nil {
		return nil
	}
	return &SQLTranscript{db: db}
}

func (t *SQLTranscript) Append(ctx context.Context, entries ...TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chatbot: begin transcript tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (patient_id, role, content, stage, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.PatientID, e.Role, e.Content, string(e.Stage), e.CreatedAt); err != nil {
			return fmt.Errorf("chatbot: insert chat message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chatbot: commit transcript: %w", err)
	}
	return nil
}

// List returns the patient's latest limit lines, oldest first.
func (t *SQLTranscript) List(ctx context.Context, patientID string, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, patient_id, role, content, COALESCE(stage, ''), created_at
		FROM chat_messages
		WHERE patient_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("chatbot: query chat messages: %w", err)
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var (
			e     TranscriptEntry
			stage string
		)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Role, &e.Content, &stage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatbot: scan chat message: %w", err)
		}
		e.Stage = Stage(stage)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatbot: iterate chat messages: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// MemoryTranscript is a process-local Transcript.
type MemoryTranscript struct {
	mu      sync.Mutex
	nextID  int64
	entries map[string][]TranscriptEntry
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{entries: make(map[string][]TranscriptEntry)}
}

func (t *MemoryTranscript) Append(_ context.Context, entries ...TranscriptEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		t.nextID++
		e.ID = t.nextID
		t.entries[e.PatientID] = append(t.entries[e.PatientID], e)
	}
	return nil
}

func (t *MemoryTranscript) List(_ context.Context, patientID string, limit int) ([]TranscriptEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}
	list := t.entries[patientID]
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return append([]TranscriptEntry(nil), list...), nil
}
