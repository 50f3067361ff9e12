// Package models defines the core data structures for notes and their owners.
package models

import (
	"errors"
	"time"
)

// ErrNoteNotFound is returned by note stores when no note has the requested id.
var ErrNoteNotFound = errors.New("note not found")

// User references the principal that owns a note.
type User struct {
	// Login is the unique login name of the user.
	Login string `json:"login"`
}

// Note is a shareable text snippet gated by a password and an expiration date.
type Note struct {
	// ID is the store-assigned identifier. Clients never choose it.
	ID string `json:"id,omitempty"`
	// Content is the note text.
	Content string `json:"content" validate:"required,min=5,max=150"`
	// Password protects public access to the note.
	Password string `json:"password,omitempty" validate:"required,min=5,max=20"`
	// Link is the public URL of the note, derived from its ID.
	Link string `json:"link,omitempty"`
	// ExpirationDate is the moment after which public access is denied.
	ExpirationDate time.Time `json:"expirationDate" validate:"required"`
	// Owner is the user who created the note.
	Owner *User `json:"user,omitempty"`
}

// OwnedBy reports whether login may access the note through the
// authenticated endpoints. Notes without an owner are open to any principal.
func (n *Note) OwnedBy(login string) bool {
	return n.Owner == nil || n.Owner.Login == login
}

// Public returns a copy of the note with the owner, password and link removed.
func (n Note) Public() Note {
	n.Owner = nil
	n.Password = ""
	n.Link = ""
	return n
}

// Expired reports whether the note is past its expiration date at now.
func (n *Note) Expired(now time.Time) bool {
	return now.After(n.ExpirationDate)
}

// NotePatch is a merge-patch body for a note. Nil fields are left untouched.
type NotePatch struct {
	ID             string     `json:"id"`
	Content        *string    `json:"content,omitempty" validate:"omitempty,min=5,max=150"`
	Password       *string    `json:"password,omitempty" validate:"omitempty,min=5,max=20"`
	Link           *string    `json:"link,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	Owner          *User      `json:"user,omitempty"`
}

// Apply merges the present fields of p into n.
func (p NotePatch) Apply(n *Note) {
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Password != nil {
		n.Password = *p.Password
	}
	if p.Link != nil {
		n.Link = *p.Link
	}
	if p.ExpirationDate != nil {
		n.ExpirationDate = *p.ExpirationDate
	}
}
