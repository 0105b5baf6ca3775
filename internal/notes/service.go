package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("notes: database handle is required")
	errMissingUserID   = errors.New("notes: user identifier is required")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ServiceConfig describes the dependencies of the notes service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages per-user note storage, listing and aggregation.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the notes service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// CreateInput carries the fields for a new note.
type CreateInput struct {
	Title   string
	Content string
	Meta    map[string]interface{}
}

// Create stores a note, deriving word and character counts into its meta.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*Note, error) {
	if userID == "" {
		return nil, errMissingUserID
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	meta := s.buildMeta(input.Content, nil, input.Meta)
	if _, ok := meta["fontColor"]; !ok {
		meta["fontColor"] = "#000000"
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode note meta: %w", err)
	}

	note := &Note{
		UserID:   userID,
		Title:    title,
		Content:  input.Content,
		MetaJSON: string(metaJSON),
	}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		s.logger.Error("note insert failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// ListQuery filters and paginates a user's notes.
type ListQuery struct {
	Page     int
	Limit    int
	Search   string
	Archived bool
	Pinned   *bool
}

// ListResult is one page of notes.
type ListResult struct {
	Notes      []Note     `json:"notes"`
	Pagination Pagination `json:"pagination"`
}

// List returns the user's notes, pinned first then most recently updated,
// optionally filtered by archived state, pinned state and a title/content
// substring search.
func (s *Service) List(ctx context.Context, userID string, query ListQuery) (ListResult, error) {
	if userID == "" {
		return ListResult{}, errMissingUserID
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	tx := s.db.WithContext(ctx).Model(&Note{}).
		Where("user_id = ? AND is_archived = ?", userID, query.Archived)
	if query.Pinned != nil {
		tx = tx.Where("is_pinned = ?", *query.Pinned)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + search + "%"
		tx = tx.Where("title LIKE ? OR content LIKE ?", pattern, pattern)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("failed to count notes: %w", err)
	}

	var items []Note
	err := tx.
		Order("is_pinned DESC, updated_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&items).Error
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list notes: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return ListResult{
		Notes: items,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}, nil
}

// Get returns one note owned by the user.
func (s *Service) Get(ctx context.Context, userID string, noteID uint) (*Note, error) {
	if userID == "" {
		return nil, errMissingUserID
	}
	var note Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID, userID).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateInput carries optional note mutations; nil fields stay unchanged.
type UpdateInput struct {
	Title   *string
	Content *string
	Meta    map[string]interface{}
}

// Update applies the mutations, recounting words and characters from the
// effective content and merging meta keys over the stored document.
func (s *Service) Update(ctx context.Context, userID string, noteID uint, input UpdateInput) (*Note, error) {
	note, err := s.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrEmptyTitle
		}
		if len(title) > maxTitleLength {
			return nil, ErrTitleTooLong
		}
		note.Title = title
	}
	if input.Content != nil {
		note.Content = *input.Content
	}

	meta := s.buildMeta(note.Content, decodeMeta(note.MetaJSON), input.Meta)
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode note meta: %w", err)
	}
	note.MetaJSON = string(metaJSON)

	if err := s.db.WithContext(ctx).Save(note).Error; err != nil {
		s.logger.Error("note update failed",
			zap.String("user_id", userID),
			zap.Uint("note_id", noteID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// Delete removes one note owned by the user.
func (s *Service) Delete(ctx context.Context, userID string, noteID uint) error {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID, userID).
		Delete(&Note{}).Error
}

// ToggleArchive flips the archived flag and returns the updated note.
func (s *Service) ToggleArchive(ctx context.Context, userID string, noteID uint) (*Note, error) {
	return s.toggleFlag(ctx, userID, noteID, func(note *Note) {
		note.IsArchived = !note.IsArchived
	})
}

// TogglePin flips the pinned flag and returns the updated note.
func (s *Service) TogglePin(ctx context.Context, userID string, noteID uint) (*Note, error) {
	return s.toggleFlag(ctx, userID, noteID, func(note *Note) {
		note.IsPinned = !note.IsPinned
	})
}

func (s *Service) toggleFlag(ctx context.Context, userID string, noteID uint, flip func(*Note)) (*Note, error) {
	note, err := s.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	flip(note)

	meta := decodeMeta(note.MetaJSON)
	meta["lastModified"] = s.clock().UTC().Format(time.RFC3339)
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode note meta: %w", err)
	}
	note.MetaJSON = string(metaJSON)

	if err := s.db.WithContext(ctx).Save(note).Error; err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

// GetStats aggregates totals across all of the user's notes, including
// word and character sums extracted from the stored meta documents.
func (s *Service) GetStats(ctx context.Context, userID string) (Stats, error) {
	if userID == "" {
		return Stats{}, errMissingUserID
	}

	var stats Stats
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_notes,
			COUNT(CASE WHEN is_archived THEN 1 END) AS archived_notes,
			COUNT(CASE WHEN is_pinned THEN 1 END) AS pinned_notes,
			COALESCE(SUM(json_extract(meta, '$.characterCount')), 0) AS total_characters,
			COALESCE(SUM(json_extract(meta, '$.wordCount')), 0) AS total_words
		FROM notes
		WHERE user_id = ?`, userID).
		Scan(&stats).Error
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate note stats: %w", err)
	}
	return stats, nil
}

// buildMeta layers derived counters and caller overrides on top of any
// existing meta document.
func (s *Service) buildMeta(content string, existing, overrides map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{}
	for key, value := range existing {
		meta[key] = value
	}
	meta["characterCount"] = characterCount(content)
	meta["wordCount"] = wordCount(content)
	meta["lastModified"] = s.clock().UTC().Format(time.RFC3339)
	for key, value := range overrides {
		meta[key] = value
	}
	return meta
}

func decodeMeta(raw string) map[string]interface{} {
	meta := map[string]interface{}{}
	if raw == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return map[string]interface{}{}
	}
	return meta
}
