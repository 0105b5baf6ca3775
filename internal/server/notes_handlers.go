package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Annibadakh/notes-taking-backend/internal/notes"
)

type notePayload struct {
	ID         uint            `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Meta       json.RawMessage `json:"meta"`
	IsArchived bool            `json:"is_archived"`
	IsPinned   bool            `json:"is_pinned"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toNotePayload(note *notes.Note) notePayload {
	meta := note.MetaJSON
	if meta == "" {
		meta = "{}"
	}
	return notePayload{
		ID:         note.ID,
		Title:      note.Title,
		Content:    note.Content,
		Meta:       json.RawMessage(meta),
		IsArchived: note.IsArchived,
		IsPinned:   note.IsPinned,
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
	}
}

type createNoteRequest struct {
	Title   string                 `json:"title" binding:"required"`
	Content string                 `json:"content"`
	Meta    map[string]interface{} `json:"meta"`
}

type updateNoteRequest struct {
	Title   *string                `json:"title"`
	Content *string                `json:"content"`
	Meta    map[string]interface{} `json:"meta"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "title is required"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), c.GetString(userIDContextKey), notes.CreateInput{
		Title:   request.Title,
		Content: request.Content,
		Meta:    request.Meta,
	})
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Note created successfully",
		"data":    toNotePayload(note),
	})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	query := notes.ListQuery{
		Search:   c.Query("search"),
		Archived: c.Query("archived") == "true",
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		query.Limit = limit
	}
	if pinned := c.Query("pinned"); pinned != "" {
		value := pinned == "true"
		query.Pinned = &value
	}

	result, err := h.notes.List(c.Request.Context(), c.GetString(userIDContextKey), query)
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	payloads := make([]notePayload, 0, len(result.Notes))
	for i := range result.Notes {
		payloads = append(payloads, toNotePayload(&result.Notes[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notes fetched successfully",
		"data": gin.H{
			"notes":      payloads,
			"pagination": result.Pagination,
		},
	})
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}

	note, err := h.notes.Get(c.Request.Context(), c.GetString(userIDContextKey), noteID)
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Note fetched successfully",
		"data":    toNotePayload(note),
	})
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}

	var request updateNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	note, err := h.notes.Update(c.Request.Context(), c.GetString(userIDContextKey), noteID, notes.UpdateInput{
		Title:   request.Title,
		Content: request.Content,
		Meta:    request.Meta,
	})
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Note updated successfully",
		"data":    toNotePayload(note),
	})
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}

	if err := h.notes.Delete(c.Request.Context(), c.GetString(userIDContextKey), noteID); err != nil {
		h.respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Note deleted successfully",
	})
}

func (h *httpHandler) handleToggleArchive(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}

	note, err := h.notes.ToggleArchive(c.Request.Context(), c.GetString(userIDContextKey), noteID)
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	message := "Note unarchived successfully"
	if note.IsArchived {
		message = "Note archived successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    toNotePayload(note),
	})
}

func (h *httpHandler) handleTogglePin(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}

	note, err := h.notes.TogglePin(c.Request.Context(), c.GetString(userIDContextKey), noteID)
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	message := "Note unpinned successfully"
	if note.IsPinned {
		message = "Note pinned successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    toNotePayload(note),
	})
}

func (h *httpHandler) handleNoteStats(c *gin.Context) {
	stats, err := h.notes.GetStats(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stats fetched successfully",
		"data":    stats,
	})
}

func (h *httpHandler) noteIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid note id"})
		return 0, false
	}
	return uint(value), true
}

func (h *httpHandler) respondNoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, notes.ErrEmptyTitle), errors.Is(err, notes.ErrTitleTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		h.logger.Error("note operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}
