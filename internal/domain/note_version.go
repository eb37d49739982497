package domain

import "time"

// NoteVersion is an immutable snapshot of a note's title and content at a
// specific version number. Snapshots are append-only: once written they are
// never modified, only removed together with their note.
type NoteVersion struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Version   int64     `json:"version"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (v *NoteVersion) Clone() *NoteVersion {
	c := *v
	return &c
}
