package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophNotes/internal/middleware"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/atinyakov/GophNotes/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NoteService defines the note operations required by the NoteHandler.
type NoteService interface {
	Create(ctx context.Context, note models.Note, principal string) (models.Note, error)
	Update(ctx context.Context, id string, note models.Note, principal string) (models.Note, error)
	PartialUpdate(ctx context.Context, id string, patch models.NotePatch, principal string) (models.Note, error)
	ListOwned(ctx context.Context, principal string) ([]models.Note, error)
	GetOwned(ctx context.Context, id string, principal string) (models.Note, error)
	GetPublic(ctx context.Context, id string, password string) (models.Note, error)
	Delete(ctx context.Context, id string, principal string) error
}

// PasswordHeader carries the note password on public reads.
const PasswordHeader = "password"

// maxBodyBytes caps the size of a note request body.
const maxBodyBytes = 64 << 10

// NoteHandler serves the /api/notes and /api/public/note endpoints.
type NoteHandler struct {
	// NoteService performs access checks and persistence.
	NoteService NoteService
	// Logger records unexpected failures. Optional.
	Logger *zap.Logger
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var note models.Note
	if !decodeBody(w, r, &note) {
		return
	}

	created, err := h.NoteService.Create(r.Context(), note, middleware.GetLoginFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/notes/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var note models.Note
	if !decodeBody(w, r, &note) {
		return
	}

	updated, err := h.NoteService.Update(r.Context(), chi.URLParam(r, "id"), note, middleware.GetLoginFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// PartialUpdate handles PATCH /api/notes/{id} with a merge-patch body.
func (h *NoteHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.NotePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	updated, err := h.NoteService.PartialUpdate(r.Context(), chi.URLParam(r, "id"), patch, middleware.GetLoginFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// List handles GET /api/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.NoteService.ListOwned(r.Context(), middleware.GetLoginFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /api/notes/{id}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.NoteService.GetOwned(r.Context(), chi.URLParam(r, "id"), middleware.GetLoginFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetPublic handles GET /api/public/note/{id}. The password is read from the
// "password" request header.
func (h *NoteHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	note, err := h.NoteService.GetPublic(r.Context(), chi.URLParam(r, "id"), r.Header.Get(PasswordHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.NoteService.Delete(r.Context(), chi.URLParam(r, "id"), middleware.GetLoginFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps service errors to status codes.
func (h *NoteHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, service.ErrForbidden.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, service.ErrNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidPassword), errors.Is(err, service.ErrExpired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		if h.Logger != nil {
			h.Logger.Error("note request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeBody reads a JSON body of at most maxBodyBytes into v. On failure it
// writes the response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "invalid body", http.StatusBadRequest)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
