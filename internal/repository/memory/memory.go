// Package memory provides map-backed note and user stores used when no
// database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/google/uuid"
)

// NoteRepository keeps notes in a map guarded by a RWMutex.
type NoteRepository struct {
	mu    sync.RWMutex
	notes map[string]models.Note
	order []string
}

// NewNoteRepository creates an empty NoteRepository.
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{notes: make(map[string]models.Note)}
}

// Create stores the note under a new UUID.
func (r *NoteRepository) Create(_ context.Context, note models.Note) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	note.ID = uuid.NewString()
	r.notes[note.ID] = clone(note)
	r.order = append(r.order, note.ID)
	return note, nil
}

// GetByID returns a copy of the stored note.
func (r *NoteRepository) GetByID(_ context.Context, id string) (models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	note, ok := r.notes[id]
	if !ok {
		return models.Note{}, models.ErrNoteNotFound
	}
	return clone(note), nil
}

// ListByOwner returns the notes of login in insertion order.
func (r *NoteRepository) ListByOwner(_ context.Context, login string) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]models.Note, 0)
	for _, id := range r.order {
		n := r.notes[id]
		if n.Owner != nil && n.Owner.Login == login {
			notes = append(notes, clone(n))
		}
	}
	return notes, nil
}

// Update replaces an existing note.
func (r *NoteRepository) Update(_ context.Context, note models.Note) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[note.ID]; !ok {
		return models.Note{}, models.ErrNoteNotFound
	}
	r.notes[note.ID] = clone(note)
	return note, nil
}

// Delete removes the note if present.
func (r *NoteRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[id]; !ok {
		return nil
	}
	delete(r.notes, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// clone copies the owner so callers cannot mutate stored state.
func clone(n models.Note) models.Note {
	if n.Owner != nil {
		owner := *n.Owner
		n.Owner = &owner
	}
	return n
}

// UserRepository keeps registered logins in a set.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]struct{})}
}

// UserExists reports whether login is registered.
func (r *UserRepository) UserExists(_ context.Context, login string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[login]
	return ok, nil
}

// RegisterUser records login. Registering twice is a no-op.
func (r *UserRepository) RegisterUser(_ context.Context, login string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[login] = struct{}{}
	return nil
}
