package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"totcare/backend/internal/advisor"
)

type activityLogCreateRequest struct {
	Category string `json:"category"`
	Detail   string `json:"detail"`
	Note     string `json:"note"`
	LoggedAt string `json:"logged_at"`
}

type voiceLogCreateRequest struct {
	Transcript string `json:"transcript"`
	Category   string `json:"category"`
	Note       string `json:"note"`
}

func (a *App) listActivityLogs(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	day := startOfUTCDay(time.Now().UTC())
	if dateRaw := strings.TrimSpace(c.Query("date")); dateRaw != "" {
		parsed, err := parseDate(dateRaw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	entries, err := a.loadDayEntries(c.Request.Context(), user.ID, day)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load activity logs")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		item := gin.H{
			"log_id":    entry.ID,
			"category":  string(entry.Category),
			"detail":    entry.Detail,
			"logged_at": entry.Timestamp.UTC(),
		}
		if entry.Note != "" {
			item["note"] = entry.Note
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"date": day.Format("2006-01-02"),
		"logs": items,
	})
}

func (a *App) createActivityLog(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload activityLogCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	category, ok := advisor.NormalizeCategory(payload.Category)
	if !ok {
		writeError(c, http.StatusBadRequest, "category must be one of: FOOD, MILK, WATER, POOP, SLEEP, OTHER")
		return
	}
	detail := strings.TrimSpace(payload.Detail)
	if detail == "" {
		writeError(c, http.StatusBadRequest, "detail is required")
		return
	}

	loggedAt := time.Now().UTC()
	if raw := strings.TrimSpace(payload.LoggedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "logged_at must be RFC3339")
			return
		}
		loggedAt = parsed.UTC()
	}

	logID, err := a.insertActivityLog(c.Request.Context(), user.ID, category, detail, strings.TrimSpace(payload.Note), loggedAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to create activity log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log_id":    logID,
		"category":  string(category),
		"detail":    detail,
		"logged_at": loggedAt,
	})
}

// Voice capture hands the transcribed utterance over as the entry detail. The
// transcription itself happens on-device; the server only stores text.
func (a *App) createVoiceActivityLog(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload voiceLogCreateRequest
	if !mustJSON(c, &payload) {
		return
	}

	transcript := strings.TrimSpace(payload.Transcript)
	if transcript == "" {
		writeError(c, http.StatusBadRequest, "transcript is required")
		return
	}
	category := advisor.CategoryOther
	if raw := strings.TrimSpace(payload.Category); raw != "" {
		normalized, ok := advisor.NormalizeCategory(raw)
		if !ok {
			writeError(c, http.StatusBadRequest, "category must be one of: FOOD, MILK, WATER, POOP, SLEEP, OTHER")
			return
		}
		category = normalized
	}

	loggedAt := time.Now().UTC()
	logID, err := a.insertActivityLog(c.Request.Context(), user.ID, category, transcript, strings.TrimSpace(payload.Note), loggedAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to create activity log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log_id":     logID,
		"category":   string(category),
		"transcript": transcript,
		"logged_at":  loggedAt,
	})
}

func (a *App) deleteActivityLog(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	logID := strings.TrimSpace(c.Param("log_id"))
	if logID == "" {
		writeError(c, http.StatusBadRequest, "log_id is required")
		return
	}

	tag, err := a.db.Exec(
		c.Request.Context(),
		`DELETE FROM "ActivityLog" WHERE id = $1 AND "userId" = $2`,
		logID,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to delete activity log")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Activity log not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": logID})
}

func (a *App) insertActivityLog(
	ctx context.Context,
	userID string,
	category advisor.Category,
	detail, note string,
	loggedAt time.Time,
) (string, error) {
	logID := uuid.NewString()

	var noteValue any
	if note == "" {
		noteValue = nil
	} else {
		noteValue = note
	}

	_, err := a.db.Exec(
		ctx,
		`INSERT INTO "ActivityLog" (id, "userId", category, detail, note, "loggedAt", "createdAt")
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		logID,
		userID,
		string(category),
		detail,
		noteValue,
		loggedAt,
	)
	if err != nil {
		return "", err
	}
	return logID, nil
}

// loadDayEntries returns a user's entries for one UTC day, newest-first. That
// order is what the tracker screen shows and what the summarizer prompt
// receives.
func (a *App) loadDayEntries(ctx context.Context, userID string, day time.Time) ([]advisor.LogEntry, error) {
	start := startOfUTCDay(day)
	end := start.Add(24 * time.Hour)

	rows, err := a.db.Query(
		ctx,
		`SELECT id, category, detail, note, "loggedAt"
		 FROM "ActivityLog"
		 WHERE "userId" = $1 AND "loggedAt" >= $2 AND "loggedAt" < $3
		 ORDER BY "loggedAt" DESC`,
		userID,
		start,
		end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]advisor.LogEntry, 0, 24)
	for rows.Next() {
		var entry advisor.LogEntry
		var category string
		var note *string
		if err := rows.Scan(&entry.ID, &category, &entry.Detail, &note, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.Category = advisor.Category(strings.ToUpper(strings.TrimSpace(category)))
		if note != nil {
			entry.Note = strings.TrimSpace(*note)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
