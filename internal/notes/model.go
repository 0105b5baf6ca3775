package notes

import (
	"errors"
	"time"
)

var (
	// ErrNoteNotFound indicates no note matches the id for this user.
	ErrNoteNotFound = errors.New("notes: note not found")
	// ErrEmptyTitle indicates a missing or blank title.
	ErrEmptyTitle = errors.New("notes: title is required")
	// ErrTitleTooLong indicates the title exceeds storage bounds.
	ErrTitleTooLong = errors.New("notes: title exceeds 255 characters")
)

const maxTitleLength = 255

// Note is one stored note. Meta is a JSON document carrying derived
// counters (characterCount, wordCount, lastModified) plus any
// client-supplied keys such as fontColor.
type Note struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"column:user_id;size:36;not null;index:idx_notes_user" json:"user_id"`
	Title      string    `gorm:"column:title;size:255;not null" json:"title"`
	Content    string    `gorm:"column:content;type:text" json:"content"`
	MetaJSON   string    `gorm:"column:meta;type:text;not null;default:'{}'" json:"-"`
	IsArchived bool      `gorm:"column:is_archived;not null;default:false" json:"is_archived"`
	IsPinned   bool      `gorm:"column:is_pinned;not null;default:false" json:"is_pinned"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName exposes the table backing notes.
func (Note) TableName() string {
	return "notes"
}

// Pagination describes one page of a list result.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

// Stats aggregates a user's notes.
type Stats struct {
	TotalNotes      int64 `json:"total_notes"`
	ArchivedNotes   int64 `json:"archived_notes"`
	PinnedNotes     int64 `json:"pinned_notes"`
	TotalCharacters int64 `json:"total_characters"`
	TotalWords      int64 `json:"total_words"`
}
