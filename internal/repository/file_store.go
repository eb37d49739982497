package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"notevault-server/internal/domain"
)

// fileDocument is the on-disk layout: two collections keyed by id. The store
// is fully reconstructible from this document alone.
type fileDocument struct {
	Notes    map[string]*domain.Note        `json:"notes"`
	Versions map[string]*domain.NoteVersion `json:"versions"`
}

// FileStore persists both collections as a single JSON document. The whole
// document is held in memory and rewritten on every mutation, so a mutation
// either reaches disk completely or not at all (write to a temp file, then
// rename over the old one).
type FileStore struct {
	mu   sync.RWMutex
	path string
	doc  fileDocument
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		doc: fileDocument{
			Notes:    make(map[string]*domain.Note),
			Versions: make(map[string]*domain.NoteVersion),
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	if s.doc.Notes == nil {
		s.doc.Notes = make(map[string]*domain.Note)
	}
	if s.doc.Versions == nil {
		s.doc.Versions = make(map[string]*domain.NoteVersion)
	}
	return s, nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

func (s *FileStore) CreateNote(ctx context.Context, note *domain.Note, initial *domain.NoteVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Notes[note.ID] = note.Clone()
	s.doc.Versions[initial.ID] = initial.Clone()
	if err := s.persist(); err != nil {
		delete(s.doc.Notes, note.ID)
		delete(s.doc.Versions, initial.ID)
		return err
	}
	return nil
}

func (s *FileStore) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.doc.Notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	return note.Clone(), nil
}

func (s *FileStore) ListNotes(ctx context.Context) ([]*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]*domain.Note, 0, len(s.doc.Notes))
	for _, n := range s.doc.Notes {
		notes = append(notes, n.Clone())
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

func (s *FileStore) UpdateNote(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Notes[note.ID]
	if !ok {
		return ErrNoteNotFound
	}
	s.doc.Notes[note.ID] = note.Clone()
	s.doc.Versions[snapshot.ID] = snapshot.Clone()
	if err := s.persist(); err != nil {
		s.doc.Notes[note.ID] = prev
		delete(s.doc.Versions, snapshot.ID)
		return err
	}
	return nil
}

func (s *FileStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.doc.Notes[id]
	if !ok {
		return ErrNoteNotFound
	}
	removed := make(map[string]*domain.NoteVersion)
	for vid, v := range s.doc.Versions {
		if v.NoteID == id {
			removed[vid] = v
			delete(s.doc.Versions, vid)
		}
	}
	delete(s.doc.Notes, id)
	if err := s.persist(); err != nil {
		s.doc.Notes[id] = note
		for vid, v := range removed {
			s.doc.Versions[vid] = v
		}
		return err
	}
	return nil
}

func (s *FileStore) ListVersions(ctx context.Context, noteID string) ([]*domain.NoteVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.doc.Notes[noteID]; !ok {
		return nil, ErrNoteNotFound
	}
	var versions []*domain.NoteVersion
	for _, v := range s.doc.Versions {
		if v.NoteID == noteID {
			versions = append(versions, v.Clone())
		}
	}
	return versions, nil
}

func (s *FileStore) GetVersion(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.doc.Notes[noteID]; !ok {
		return nil, ErrNoteNotFound
	}
	v, ok := s.doc.Versions[versionID]
	if !ok || v.NoteID != noteID {
		return nil, ErrVersionNotFound
	}
	return v.Clone(), nil
}
