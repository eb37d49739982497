package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, path
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	note := testNote("n1", "title", "content", 1)
	if err := store.CreateNote(ctx, note, testVersion("v1", note)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	note.Version = 2
	note.Content = "content v2"
	if err := store.UpdateNote(ctx, note, testVersion("v2", note)); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	got, err := reopened.GetNote(ctx, "n1")
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if got.Version != 2 || got.Content != "content v2" {
		t.Errorf("unexpected note after reopen: %+v", got)
	}

	versions, err := reopened.ListVersions(ctx, "n1")
	if err != nil {
		t.Fatalf("list versions after reopen failed: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("expected 2 versions after reopen, got %d", len(versions))
	}
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	store, _ := newTestFileStore(t)

	notes, err := store.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected empty store, got %d notes", len(notes))
	}
}

func TestFileStore_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path); err == nil {
		t.Error("expected error opening corrupt store file")
	}
}

func TestFileStore_ListOrderDeterministic(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		note := testNote(id, id, id, 1)
		note.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		store.CreateNote(ctx, note, testVersion("v-"+id, note))
	}

	first, _ := store.ListNotes(ctx)

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	second, _ := reopened.ListNotes(ctx)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 notes, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("order changed across reopen at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
	// Ordered by creation time, not id.
	for i, want := range []string{"b", "a", "c"} {
		if first[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, first[i].ID)
		}
	}
}

func TestFileStore_DeleteRemovesVersionsFromDisk(t *testing.T) {
	store, path := newTestFileStore(t)
	ctx := context.Background()

	note := testNote("n1", "t", "c", 1)
	store.CreateNote(ctx, note, testVersion("v1", note))
	note.Version = 2
	store.UpdateNote(ctx, note, testVersion("v2", note))

	if err := store.DeleteNote(ctx, "n1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.GetNote(ctx, "n1"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("deleted note survived on disk: %v", err)
	}
	if _, err := reopened.GetVersion(ctx, "n1", "v1"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("orphaned version survived on disk: %v", err)
	}
}

func TestFileStore_GetVersion_WrongNote(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	a := testNote("a", "a", "a", 1)
	store.CreateNote(ctx, a, testVersion("va", a))
	b := testNote("b", "b", "b", 1)
	store.CreateNote(ctx, b, testVersion("vb", b))

	if _, err := store.GetVersion(ctx, "a", "vb"); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound for another note's version, got %v", err)
	}
}
