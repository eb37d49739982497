package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"notevault-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

const (
	docTypeNote    = "note"
	docTypeVersion = "note_version"
)

type couchNoteDoc struct {
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	domain.Note
}

type couchVersionDoc struct {
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	domain.NoteVersion
}

// CouchStore persists both collections in one CouchDB database, with doc ids
// note:<id> and version:<id>. CouchDB has no cross-document transaction;
// delete goes through a single _bulk_docs request and the service serializes
// writers per note, so no reader observes a partial delete in practice.
type CouchStore struct {
	client *kivik.Client
	dbName string
}

func NewCouchStore(client *kivik.Client, dbName string) *CouchStore {
	return &CouchStore{
		client: client,
		dbName: dbName,
	}
}

func noteDocID(id string) string    { return fmt.Sprintf("note:%s", id) }
func versionDocID(id string) string { return fmt.Sprintf("version:%s", id) }

func (s *CouchStore) CreateNote(ctx context.Context, note *domain.Note, initial *domain.NoteVersion) error {
	db := s.client.DB(s.dbName)

	if _, err := db.Put(ctx, noteDocID(note.ID), couchNoteDoc{Type: docTypeNote, Note: *note}); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	if _, err := db.Put(ctx, versionDocID(initial.ID), couchVersionDoc{Type: docTypeVersion, NoteVersion: *initial}); err != nil {
		// Roll the note doc back so a failed create leaves no trace.
		if doc, rerr := s.getNoteDoc(ctx, note.ID); rerr == nil {
			db.Delete(ctx, noteDocID(note.ID), doc.Rev)
		}
		return fmt.Errorf("create initial version: %w", err)
	}
	return nil
}

func (s *CouchStore) getNoteDoc(ctx context.Context, id string) (*couchNoteDoc, error) {
	db := s.client.DB(s.dbName)

	var doc couchNoteDoc
	if err := db.Get(ctx, noteDocID(id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("fetch note: %w", err)
	}
	return &doc, nil
}

func (s *CouchStore) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	doc, err := s.getNoteDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Note.Clone(), nil
}

func (s *CouchStore) ListNotes(ctx context.Context) ([]*domain.Note, error) {
	db := s.client.DB(s.dbName)

	rows := db.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{"type": docTypeNote},
	})
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		var doc couchNoteDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		notes = append(notes, doc.Note.Clone())
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

func (s *CouchStore) UpdateNote(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error {
	db := s.client.DB(s.dbName)

	existing, err := s.getNoteDoc(ctx, note.ID)
	if err != nil {
		return err
	}

	// Append the snapshot first; if it fails the note is untouched.
	if _, err := db.Put(ctx, versionDocID(snapshot.ID), couchVersionDoc{Type: docTypeVersion, NoteVersion: *snapshot}); err != nil {
		return fmt.Errorf("append version: %w", err)
	}

	updated := couchNoteDoc{Rev: existing.Rev, Type: docTypeNote, Note: *note}
	if _, err := db.Put(ctx, noteDocID(note.ID), updated); err != nil {
		if doc, rerr := s.getVersionDoc(ctx, snapshot.ID); rerr == nil {
			db.Delete(ctx, versionDocID(snapshot.ID), doc.Rev)
		}
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (s *CouchStore) getVersionDoc(ctx context.Context, id string) (*couchVersionDoc, error) {
	db := s.client.DB(s.dbName)

	var doc couchVersionDoc
	if err := db.Get(ctx, versionDocID(id)).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("fetch version: %w", err)
	}
	return &doc, nil
}

func (s *CouchStore) DeleteNote(ctx context.Context, id string) error {
	db := s.client.DB(s.dbName)

	noteDoc, err := s.getNoteDoc(ctx, id)
	if err != nil {
		return err
	}
	versionDocs, err := s.listVersionDocs(ctx, id)
	if err != nil {
		return err
	}

	docs := []interface{}{map[string]interface{}{
		"_id":      noteDocID(id),
		"_rev":     noteDoc.Rev,
		"_deleted": true,
	}}
	for _, v := range versionDocs {
		docs = append(docs, map[string]interface{}{
			"_id":      versionDocID(v.NoteVersion.ID),
			"_rev":     v.Rev,
			"_deleted": true,
		})
	}

	results, err := db.BulkDocs(ctx, docs)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	for _, res := range results {
		if res.Error != nil {
			return fmt.Errorf("delete note doc %s: %w", res.ID, res.Error)
		}
	}
	return nil
}

func (s *CouchStore) listVersionDocs(ctx context.Context, noteID string) ([]*couchVersionDoc, error) {
	db := s.client.DB(s.dbName)

	rows := db.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"type":    docTypeVersion,
			"note_id": noteID,
		},
	})
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var docs []*couchVersionDoc
	for rows.Next() {
		var doc couchVersionDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func (s *CouchStore) ListVersions(ctx context.Context, noteID string) ([]*domain.NoteVersion, error) {
	if _, err := s.getNoteDoc(ctx, noteID); err != nil {
		return nil, err
	}
	docs, err := s.listVersionDocs(ctx, noteID)
	if err != nil {
		return nil, err
	}
	versions := make([]*domain.NoteVersion, 0, len(docs))
	for _, doc := range docs {
		versions = append(versions, doc.NoteVersion.Clone())
	}
	return versions, nil
}

func (s *CouchStore) GetVersion(ctx context.Context, noteID, versionID string) (*domain.NoteVersion, error) {
	if _, err := s.getNoteDoc(ctx, noteID); err != nil {
		return nil, err
	}
	doc, err := s.getVersionDoc(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if doc.NoteVersion.NoteID != noteID {
		return nil, ErrVersionNotFound
	}
	return doc.NoteVersion.Clone(), nil
}
