package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/GophNotes/internal/models"
)

const (
	apiRegister   = "/api/register"
	apiLogin      = "/api/login"
	apiNotes      = "/api/notes"
	apiPublicNote = "/api/public/note/"
)

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// API calls the GophNotes HTTP API.
type API struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a bearer token when non-empty.
	Token string
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Status  string `json:"status"`
	User    string `json:"user"`
	IDToken string `json:"id_token,omitempty"`
}

// Login confirms the certificate identity. A returned id_token is kept in
// Token for subsequent calls.
func (a *API) Login(ctx context.Context) (LoginResult, error) {
	var res LoginResult
	if err := a.do(ctx, http.MethodPost, apiLogin, "", nil, nil, http.StatusOK, &res); err != nil {
		return LoginResult{}, err
	}
	if res.IDToken != "" {
		a.Token = res.IDToken
	}
	return res, nil
}

// CreateNote stores a new note and returns it with its id and link.
func (a *API) CreateNote(ctx context.Context, note models.Note) (models.Note, error) {
	var created models.Note
	err := a.do(ctx, http.MethodPost, apiNotes, "application/json", note, nil, http.StatusCreated, &created)
	return created, err
}

// UpdateNote replaces the note with note.ID.
func (a *API) UpdateNote(ctx context.Context, note models.Note) (models.Note, error) {
	var updated models.Note
	err := a.do(ctx, http.MethodPut, apiNotes+"/"+url.PathEscape(note.ID), "application/json", note, nil, http.StatusOK, &updated)
	return updated, err
}

// PatchNote merges the present fields of patch into the note with patch.ID.
func (a *API) PatchNote(ctx context.Context, patch models.NotePatch) (models.Note, error) {
	var updated models.Note
	err := a.do(ctx, http.MethodPatch, apiNotes+"/"+url.PathEscape(patch.ID), "application/merge-patch+json", patch, nil, http.StatusOK, &updated)
	return updated, err
}

// ListNotes returns the caller's notes.
func (a *API) ListNotes(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	err := a.do(ctx, http.MethodGet, apiNotes, "", nil, nil, http.StatusOK, &notes)
	return notes, err
}

// GetNote returns one of the caller's notes.
func (a *API) GetNote(ctx context.Context, id string) (models.Note, error) {
	var note models.Note
	err := a.do(ctx, http.MethodGet, apiNotes+"/"+url.PathEscape(id), "", nil, nil, http.StatusOK, &note)
	return note, err
}

// GetPublicNote reads a shared note with its password.
func (a *API) GetPublicNote(ctx context.Context, id, password string) (models.Note, error) {
	var note models.Note
	headers := map[string]string{"password": password}
	err := a.do(ctx, http.MethodGet, apiPublicNote+url.PathEscape(id), "", nil, headers, http.StatusOK, &note)
	return note, err
}

// DeleteNote removes one of the caller's notes.
func (a *API) DeleteNote(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, apiNotes+"/"+url.PathEscape(id), "", nil, nil, http.StatusNoContent, nil)
}

func (a *API) do(
	ctx context.Context,
	method, path, contentType string,
	body any,
	headers map[string]string,
	wantStatus int,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
