package repository

import (
	"context"
	"sync"

	"notevault-server/internal/domain"
)

// MemoryStore keeps both collections in process memory. Notes are listed in
// insertion order. Tests construct one per case to get an isolated store.
type MemoryStore struct {
	mu       sync.RWMutex
	notes    map[string]*domain.Note
	versions map[string]*domain.NoteVersion
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notes:    make(map[string]*domain.Note),
		versions: make(map[string]*domain.NoteVersion),
	}
}

func (s *MemoryStore) CreateNote(ctx context.Context, note *domain.Note, initial *domain.NoteVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes[note.ID] = note.Clone()
	s.versions[initial.ID] = initial.Clone()
	s.order = append(s.order, note.ID)
	return nil
}

func (s *MemoryStore) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	return note.Clone(), nil
}

func (s *MemoryStore) ListNotes(ctx context.Context) ([]*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]*domain.Note, 0, len(s.order))
	for _, id := range s.order {
		notes = append(notes, s.notes[id].Clone())
	}
	return notes, nil
}

func (s *MemoryStore) UpdateNote(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[note.ID]; !ok {
		return ErrNoteNotFound
	}
	s.notes[note.ID] = note.Clone()
	s.versions[snapshot.ID] = snapshot.Clone()
	return nil
}

func (s *MemoryStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return ErrNoteNotFound
	}
	delete(s.notes, id)
	for vid, v := range s.versions {
		if v.NoteID == id {
			delete(s.versions, vid)
		}
	}
	for i, nid := range s.order {
		if nid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ListVersions(ctx context.Context, noteID string) ([]*domain.NoteVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.notes[noteID]; !ok {
		return nil, ErrNoteNotFound
	}
	var versions []*domain.NoteVersion
	for _, v := range s.versions {
		if v.NoteID == noteID {
			versions = append(versions, v.Clone())
		}
	}
	return versions, nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.notes[noteID]; !ok {
		return nil, ErrNoteNotFound
	}
	v, ok := s.versions[versionID]
	if !ok || v.NoteID != noteID {
		return nil, ErrVersionNotFound
	}
	return v.Clone(), nil
}
