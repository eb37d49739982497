package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"

	"github.com/google/uuid"
)

// Broadcaster receives note lifecycle events after a mutation commits.
// The service nil-checks it, so callers that do not push change events
// (tests, batch tooling) can pass nil.
type Broadcaster interface {
	NoteCreated(note *domain.Note)
	NoteUpdated(note *domain.Note)
	NoteRestored(note *domain.Note, restoredFrom int64)
	NoteDeleted(noteID string)
}

// NoteService owns the versioning rules: every successful mutation advances
// the note's version by exactly one and appends exactly one immutable
// snapshot. Mutations on the same note id are serialized through a per-note
// lock so version numbers stay strictly increasing and deletes are atomic
// with respect to concurrent writers.
type NoteService struct {
	store  repository.Store
	events Broadcaster
	now    func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewNoteService(store repository.Store, events Broadcaster) *NoteService {
	return &NoteService{
		store:  store,
		events: events,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetClock replaces the time source. Tests use it to assert exact timestamps.
func (s *NoteService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *NoteService) noteLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, ok := s.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[id] = lock
	return lock
}

func validateNoteFields(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

func (s *NoteService) wrapStoreErr(err error, noteID, versionID string) error {
	switch {
	case errors.Is(err, repository.ErrNoteNotFound):
		return &NotFoundError{Resource: "note", ID: noteID}
	case errors.Is(err, repository.ErrVersionNotFound):
		return &NotFoundError{Resource: "version", ID: versionID}
	}
	return err
}

func snapshotOf(note *domain.Note, at time.Time) *domain.NoteVersion {
	return &domain.NoteVersion{
		ID:        uuid.New().String(),
		NoteID:    note.ID,
		Version:   note.Version,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: at,
	}
}

func (s *NoteService) Create(ctx context.Context, req *domain.CreateNoteRequest) (*domain.Note, error) {
	if err := validateNoteFields(req.Title, req.Content); err != nil {
		return nil, err
	}

	now := s.now()
	note := &domain.Note{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Content:   req.Content,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateNote(ctx, note, snapshotOf(note, now)); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.NoteCreated(note)
	}
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, noteID string) (*domain.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, s.wrapStoreErr(err, noteID, "")
	}
	return note, nil
}

func (s *NoteService) List(ctx context.Context) ([]*domain.Note, error) {
	return s.store.ListNotes(ctx)
}

func (s *NoteService) Update(ctx context.Context, noteID string, req *domain.UpdateNoteRequest) (*domain.Note, error) {
	lock := s.noteLock(noteID)
	lock.Lock()
	defer lock.Unlock()

	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, s.wrapStoreErr(err, noteID, "")
	}
	if err := validateNoteFields(req.Title, req.Content); err != nil {
		return nil, err
	}

	now := s.now()
	note.Title = req.Title
	note.Content = req.Content
	note.Version++
	note.UpdatedAt = now

	if err := s.store.UpdateNote(ctx, note, snapshotOf(note, now)); err != nil {
		return nil, s.wrapStoreErr(err, noteID, "")
	}

	if s.events != nil {
		s.events.NoteUpdated(note)
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	lock := s.noteLock(noteID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return s.wrapStoreErr(err, noteID, "")
	}

	if s.events != nil {
		s.events.NoteDeleted(noteID)
	}
	return nil
}

// ListVersions returns the note's history, most recent version first.
func (s *NoteService) ListVersions(ctx context.Context, noteID string) ([]*domain.NoteVersion, error) {
	versions, err := s.store.ListVersions(ctx, noteID)
	if err != nil {
		return nil, s.wrapStoreErr(err, noteID, "")
	}
	sortVersionsDesc(versions)
	return versions, nil
}

// Restore copies an old snapshot's title and content onto the note, exactly
// as an update would: the version advances and a fresh snapshot records the
// restored state. The target snapshot itself is never touched, so the full
// history stays readable forward.
func (s *NoteService) Restore(ctx context.Context, noteID, versionID string) (*domain.Note, error) {
	lock := s.noteLock(noteID)
	lock.Lock()
	defer lock.Unlock()

	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, s.wrapStoreErr(err, noteID, versionID)
	}
	target, err := s.store.GetVersion(ctx, noteID, versionID)
	if err != nil {
		return nil, s.wrapStoreErr(err, noteID, versionID)
	}

	now := s.now()
	note.Title = target.Title
	note.Content = target.Content
	note.Version++
	note.UpdatedAt = now

	if err := s.store.UpdateNote(ctx, note, snapshotOf(note, now)); err != nil {
		return nil, s.wrapStoreErr(err, noteID, versionID)
	}

	if s.events != nil {
		s.events.NoteRestored(note, target.Version)
	}
	return note, nil
}

func sortVersionsDesc(versions []*domain.NoteVersion) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
}
