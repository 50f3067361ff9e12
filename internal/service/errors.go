package service

import (
	"errors"
	"fmt"
)

// Errors returned by NoteService. Match them with errors.Is.
var (
	// ErrBadRequest marks malformed or self-contradictory input.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden is returned when the principal does not own the note.
	ErrForbidden = errors.New("error.http.403")
	// ErrNotFound is returned when no note exists for the id.
	ErrNotFound = errors.New("error.http.404")
	// ErrInvalidPassword is returned when a public read supplies the wrong password.
	ErrInvalidPassword = errors.New("error.invalidpassword")
	// ErrExpired is returned when a public read happens after the expiration date.
	ErrExpired = errors.New("error.noteexpired: note content has reached its expiration date")
)

var (
	// ErrIDExists is returned when a new note already carries an id.
	ErrIDExists = fmt.Errorf("%w: error.idexists: a new note cannot already have an ID", ErrBadRequest)
	// ErrIDNull is returned when an update body has no id.
	ErrIDNull = fmt.Errorf("%w: error.idnull: invalid id", ErrBadRequest)
	// ErrIDInvalid is returned when the body id differs from the path id.
	ErrIDInvalid = fmt.Errorf("%w: error.idinvalid: invalid ID", ErrBadRequest)
)
