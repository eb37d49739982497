package repository

import (
	"context"
	"errors"

	"notevault-server/internal/domain"
)

var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrVersionNotFound = errors.New("version not found")
)

// Store owns both collections, notes and versions, so that mutations touching
// the pair can be applied as one unit. Implementations never partially apply
// a call: either the note and its snapshot are both written, or neither is.
type Store interface {
	// CreateNote persists a new note together with its initial snapshot.
	CreateNote(ctx context.Context, note *domain.Note, initial *domain.NoteVersion) error

	// GetNote returns ErrNoteNotFound if no note with that id exists.
	GetNote(ctx context.Context, id string) (*domain.Note, error)

	// ListNotes returns all notes in a deterministic order for a fixed state.
	ListNotes(ctx context.Context) ([]*domain.Note, error)

	// UpdateNote replaces the note's current state and appends the snapshot.
	// Returns ErrNoteNotFound if the note does not exist.
	UpdateNote(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error

	// DeleteNote removes the note and every snapshot referencing it.
	// Returns ErrNoteNotFound if the note does not exist.
	DeleteNote(ctx context.Context, id string) error

	// ListVersions returns every snapshot for the note, in no particular
	// order. Returns ErrNoteNotFound if the note does not exist.
	ListVersions(ctx context.Context, noteID string) ([]*domain.NoteVersion, error)

	// GetVersion returns ErrVersionNotFound when the version id is unknown or
	// identifies a snapshot belonging to a different note, and
	// ErrNoteNotFound when the note itself does not exist.
	GetVersion(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error)
}
