package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/GophNotes/internal/models"
)

// ErrInputClosed is returned when the input ends before a prompt is answered.
var ErrInputClosed = errors.New("input closed")

// Prompter reads answers line by line.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
	now func() time.Time
}

// NewPrompter reads from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out, now: time.Now}
}

// Ask prints question and returns the trimmed answer.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// PromptForNote asks for the fields of a new note owned by login.
func (p *Prompter) PromptForNote(login string) (models.Note, error) {
	content, err := p.Ask("Enter content: ")
	if err != nil {
		return models.Note{}, err
	}
	password, err := p.Ask("Enter password for public access: ")
	if err != nil {
		return models.Note{}, err
	}
	expiresIn, err := p.Ask("Expires (duration like 24h or RFC3339 time): ")
	if err != nil {
		return models.Note{}, err
	}
	exp, err := p.parseExpiration(expiresIn)
	if err != nil {
		return models.Note{}, err
	}

	return models.Note{
		Content:        content,
		Password:       password,
		ExpirationDate: exp,
		Owner:          &models.User{Login: login},
	}, nil
}

// PromptEditNote asks for replacement values. Empty answers leave the field
// untouched.
func (p *Prompter) PromptEditNote(id string) (models.NotePatch, error) {
	patch := models.NotePatch{ID: id}

	content, err := p.Ask("Enter new content (empty to keep): ")
	if err != nil {
		return patch, err
	}
	if content != "" {
		patch.Content = &content
	}

	password, err := p.Ask("Enter new password (empty to keep): ")
	if err != nil {
		return patch, err
	}
	if password != "" {
		patch.Password = &password
	}

	expiresIn, err := p.Ask("New expiration (empty to keep): ")
	if err != nil {
		return patch, err
	}
	if expiresIn != "" {
		exp, err := p.parseExpiration(expiresIn)
		if err != nil {
			return patch, err
		}
		patch.ExpirationDate = &exp
	}
	return patch, nil
}

func (p *Prompter) parseExpiration(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return p.now().Add(d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiration %q", s)
	}
	return t, nil
}
