package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/google/uuid"
)

// PostgresNoteRepository implements note persistence against a PostgreSQL database.
type PostgresNoteRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresNoteRepository creates a PostgresNoteRepository on db.
func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{DB: db}
}

const noteColumns = `id, content, password, link, expiration_date, user_login`

// Create inserts the note under a freshly generated UUID and returns it.
func (r *PostgresNoteRepository) Create(ctx context.Context, note models.Note) (models.Note, error) {
	note.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO notes (id, content, password, link, expiration_date, user_login)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, note.ID, note.Content, note.Password, nullString(note.Link), note.ExpirationDate.UTC(), ownerLogin(note))
	if err != nil {
		return models.Note{}, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

// GetByID returns the note with the given id or models.ErrNoteNotFound.
func (r *PostgresNoteRepository) GetByID(ctx context.Context, id string) (models.Note, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, models.ErrNoteNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("GetByID: %w", err)
	}
	return note, nil
}

// ListByOwner returns all notes whose owner is login.
func (r *PostgresNoteRepository) ListByOwner(ctx context.Context, login string) ([]models.Note, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE user_login = $1`, login)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	return notes, nil
}

// Update replaces every column of the stored note.
func (r *PostgresNoteRepository) Update(ctx context.Context, note models.Note) (models.Note, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notes
		   SET content = $2, password = $3, link = $4, expiration_date = $5, user_login = $6
		 WHERE id = $1
	`, note.ID, note.Content, note.Password, nullString(note.Link), note.ExpirationDate.UTC(), ownerLogin(note))
	if err != nil {
		return models.Note{}, fmt.Errorf("update note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Note{}, fmt.Errorf("update note: %w", err)
	}
	if n == 0 {
		return models.Note{}, models.ErrNoteNotFound
	}
	return note, nil
}

// Delete removes the note. Missing ids are ignored.
func (r *PostgresNoteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (models.Note, error) {
	var (
		note  models.Note
		link  sql.NullString
		owner sql.NullString
		exp   time.Time
	)
	if err := s.Scan(&note.ID, &note.Content, &note.Password, &link, &exp, &owner); err != nil {
		return models.Note{}, err
	}
	note.Link = link.String
	note.ExpirationDate = exp
	if owner.Valid && owner.String != "" {
		note.Owner = &models.User{Login: owner.String}
	}
	return note, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ownerLogin(note models.Note) sql.NullString {
	if note.Owner == nil {
		return sql.NullString{}
	}
	return nullString(note.Owner.Login)
}
