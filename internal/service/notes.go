package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophNotes/internal/models"
	"go.uber.org/zap"
)

// NoteRepository defines the persistence operations needed by the NoteService.
type NoteRepository interface {
	// Create stores a new note and returns it with its assigned ID.
	Create(ctx context.Context, note models.Note) (models.Note, error)
	// GetByID returns the note with the given ID or models.ErrNoteNotFound.
	GetByID(ctx context.Context, id string) (models.Note, error)
	// ListByOwner returns all notes owned by login.
	ListByOwner(ctx context.Context, login string) ([]models.Note, error)
	// Update replaces a stored note. Returns models.ErrNoteNotFound if absent.
	Update(ctx context.Context, note models.Note) (models.Note, error)
	// Delete removes the note. Deleting an absent note is not an error.
	Delete(ctx context.Context, id string) error
}

// NoteService enforces ownership and public sharing rules around a NoteRepository.
// It holds no mutable state and is safe for concurrent use.
type NoteService struct {
	repo          NoteRepository
	publicURLBase string
	log           *zap.Logger

	// Now returns the current time. Overridable in tests.
	Now func() time.Time
}

// NewNoteService constructs a NoteService. publicURLBase is the prefix the
// note ID is appended to when building its public link.
func NewNoteService(repo NoteRepository, publicURLBase string, log *zap.Logger) *NoteService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteService{
		repo:          repo,
		publicURLBase: publicURLBase,
		log:           log,
		Now:           time.Now,
	}
}

// Create stores a new note owned by principal and sets its public link.
//
// The link depends on the store-assigned ID, so the note is written twice.
// If the second write fails the note exists without a link.
func (s *NoteService) Create(ctx context.Context, note models.Note, principal string) (models.Note, error) {
	s.log.Debug("request to create note", zap.String("principal", principal))

	if note.ID != "" {
		return models.Note{}, ErrIDExists
	}
	if err := validateStruct(note); err != nil {
		return models.Note{}, err
	}
	if note.Owner == nil || note.Owner.Login != principal {
		return models.Note{}, ErrForbidden
	}

	created, err := s.repo.Create(ctx, note)
	if err != nil {
		return models.Note{}, fmt.Errorf("create note: %w", err)
	}

	created.Link = s.publicURLBase + created.ID
	linked, err := s.repo.Update(ctx, created)
	if err != nil {
		s.log.Error("note stored without link", zap.String("id", created.ID), zap.Error(err))
		return models.Note{}, fmt.Errorf("set note link: %w", err)
	}
	return linked, nil
}

// Update replaces the note with the given id. The owner is kept when the
// body does not name one; the link is never recomputed.
func (s *NoteService) Update(ctx context.Context, id string, note models.Note, principal string) (models.Note, error) {
	s.log.Debug("request to update note", zap.String("id", id), zap.String("principal", principal))

	if err := checkIDs(id, note.ID); err != nil {
		return models.Note{}, err
	}
	if err := validateStruct(note); err != nil {
		return models.Note{}, err
	}

	existing, err := s.loadOwned(ctx, id, note.Owner, principal)
	if err != nil {
		return models.Note{}, err
	}
	if note.Owner == nil {
		note.Owner = existing.Owner
	}

	updated, err := s.repo.Update(ctx, note)
	if err != nil {
		return models.Note{}, s.storeError("update note", err)
	}
	return updated, nil
}

// PartialUpdate merges the present fields of patch into the note with the given id.
func (s *NoteService) PartialUpdate(ctx context.Context, id string, patch models.NotePatch, principal string) (models.Note, error) {
	s.log.Debug("request to partially update note", zap.String("id", id), zap.String("principal", principal))

	if err := checkIDs(id, patch.ID); err != nil {
		return models.Note{}, err
	}
	if err := validateStruct(patch); err != nil {
		return models.Note{}, err
	}

	existing, err := s.loadOwned(ctx, id, patch.Owner, principal)
	if err != nil {
		return models.Note{}, err
	}

	patch.Apply(&existing)
	if err := validateStruct(existing); err != nil {
		return models.Note{}, err
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return models.Note{}, s.storeError("partially update note", err)
	}
	return updated, nil
}

// ListOwned returns every note owned by principal.
func (s *NoteService) ListOwned(ctx context.Context, principal string) ([]models.Note, error) {
	s.log.Debug("request to list notes", zap.String("principal", principal))

	notes, err := s.repo.ListByOwner(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// GetOwned returns the note unmodified if principal may access it.
func (s *NoteService) GetOwned(ctx context.Context, id string, principal string) (models.Note, error) {
	s.log.Debug("request to get note", zap.String("id", id), zap.String("principal", principal))

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Note{}, s.storeError("get note", err)
	}
	if !note.OwnedBy(principal) {
		return models.Note{}, ErrForbidden
	}
	return note, nil
}

// GetPublic returns the sanitized note when password matches and the note
// has not expired. The password is checked first.
func (s *NoteService) GetPublic(ctx context.Context, id string, password string) (models.Note, error) {
	s.log.Debug("request to get public note", zap.String("id", id))

	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Note{}, s.storeError("get public note", err)
	}
	if subtle.ConstantTimeCompare([]byte(note.Password), []byte(password)) != 1 {
		return models.Note{}, ErrInvalidPassword
	}
	if note.Expired(s.Now()) {
		return models.Note{}, ErrExpired
	}
	return note.Public(), nil
}

// Delete removes the note if principal may access it. Deleting an unknown
// id succeeds.
func (s *NoteService) Delete(ctx context.Context, id string, principal string) error {
	s.log.Debug("request to delete note", zap.String("id", id), zap.String("principal", principal))

	note, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, models.ErrNoteNotFound):
	case err != nil:
		return fmt.Errorf("get note: %w", err)
	case !note.OwnedBy(principal):
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// loadOwned fetches the stored note and checks both the owner named in the
// request body and the stored owner against principal.
func (s *NoteService) loadOwned(ctx context.Context, id string, bodyOwner *models.User, principal string) (models.Note, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Note{}, s.storeError("get note", err)
	}
	if bodyOwner != nil && bodyOwner.Login != principal {
		return models.Note{}, ErrForbidden
	}
	if !existing.OwnedBy(principal) {
		return models.Note{}, ErrForbidden
	}
	return existing, nil
}

func (s *NoteService) storeError(op string, err error) error {
	if errors.Is(err, models.ErrNoteNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func checkIDs(pathID, bodyID string) error {
	if bodyID == "" {
		return ErrIDNull
	}
	if pathID != bodyID {
		return ErrIDInvalid
	}
	return nil
}
