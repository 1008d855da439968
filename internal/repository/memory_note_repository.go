package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/study-vault-api/internal/models"
)

// MemoryNoteRepository keeps notes in process memory in insertion order.
// Used for local development and end-to-end tests.
type MemoryNoteRepository struct {
	mu    sync.RWMutex
	notes []models.Note
}

// NewMemoryNoteRepository constructs an empty store.
func NewMemoryNoteRepository() *MemoryNoteRepository {
	return &MemoryNoteRepository{}
}

func (r *MemoryNoteRepository) Create(_ context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.ShareToken == "" {
		note.ShareToken = note.ID
	}
	if note.UploadedAt.IsZero() {
		note.UploadedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(note.ID) >= 0 {
		return fmt.Errorf("create note: duplicate id %s", note.ID)
	}
	r.notes = append(r.notes, *note)
	return nil
}

func (r *MemoryNoteRepository) GetByID(_ context.Context, id string) (*models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, sql.ErrNoRows
	}
	note := r.notes[i]
	return &note, nil
}

func (r *MemoryNoteRepository) List(_ context.Context, filter models.NoteFilter) ([]models.Note, error) {
	r.mu.RLock()
	out := make([]models.Note, 0, len(r.notes))
	for _, n := range r.notes {
		if filter.Category == "" || n.Category == filter.Category {
			out = append(out, n)
		}
	}
	r.mu.RUnlock()

	sortNotes(out, filter.Sort)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryNoteRepository) Update(_ context.Context, id string, changes models.NoteChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	n := &r.notes[i]
	if changes.Title != nil {
		n.Title = *changes.Title
	}
	if changes.Description != nil {
		n.Description = *changes.Description
	}
	if changes.Category != nil {
		n.Category = *changes.Category
	}
	if changes.Order != nil {
		n.Order = *changes.Order
	}
	return nil
}

func (r *MemoryNoteRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	r.notes = append(r.notes[:i], r.notes[i+1:]...)
	return nil
}

func (r *MemoryNoteRepository) Ping(context.Context) error { return nil }

func (r *MemoryNoteRepository) indexOf(id string) int {
	for i := range r.notes {
		if r.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// sortNotes mirrors the SQL orderings of NoteRepository on an insertion-ordered slice.
func sortNotes(notes []models.Note, key models.NoteSort) {
	switch key {
	case models.SortDateDesc:
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].UploadedAt.After(notes[j].UploadedAt) })
	case models.SortDateAsc:
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].UploadedAt.Before(notes[j].UploadedAt) })
	case models.SortNameAsc:
		sort.SliceStable(notes, func(i, j int) bool {
			return strings.ToLower(notes[i].Title) < strings.ToLower(notes[j].Title)
		})
	case models.SortNameDesc:
		sort.SliceStable(notes, func(i, j int) bool {
			return strings.ToLower(notes[i].Title) > strings.ToLower(notes[j].Title)
		})
	case models.SortCategory:
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].Category < notes[j].Category })
	case models.SortCustom:
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].Order < notes[j].Order })
	}
}
