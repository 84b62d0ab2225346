package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"totcare/backend/internal/gemini"
)

type dailySummaryRequest struct {
	Date string `json:"date"`
}

type knowledgeRequest struct {
	Query string `json:"query"`
}

type illnessRequest struct {
	Symptoms string `json:"symptoms"`
}

type emergencyRequest struct {
	Situation string `json:"situation"`
}

type emergencyScenario struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Sub   string `json:"sub"`
}

// The preset list mirrors the scenarios the client renders as one-tap cards.
// Free-text situations are accepted too.
var emergencyScenarios = []emergencyScenario{
	{ID: "choking", Title: "噎食/窒息", Sub: "Choking"},
	{ID: "burns", Title: "烧伤/烫伤", Sub: "Burns"},
	{ID: "cpr", Title: "心肺复苏", Sub: "Child CPR"},
	{ID: "poison", Title: "误食/中毒", Sub: "Poisoning"},
	{ID: "head", Title: "头部受伤", Sub: "Head Injury"},
	{ID: "seizure", Title: "惊厥/抽搐", Sub: "Seizure"},
}

func (a *App) adviceDailySummary(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload dailySummaryRequest
	if !mustJSON(c, &payload) {
		return
	}

	day := startOfUTCDay(time.Now().UTC())
	if raw := strings.TrimSpace(payload.Date); raw != "" {
		parsed, err := parseDate(raw)
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

	summary := a.advisor.SummarizeDailyLogs(c.Request.Context(), entries)
	c.JSON(http.StatusOK, gin.H{
		"date":      day.Format("2006-01-02"),
		"log_count": len(entries),
		"summary":   summary,
	})
}

func (a *App) adviceKnowledge(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload knowledgeRequest
	if !mustJSON(c, &payload) {
		return
	}
	query := strings.TrimSpace(payload.Query)
	if query == "" {
		writeError(c, http.StatusBadRequest, "query is required")
		return
	}

	advice, err := a.advisor.KnowledgeAdvice(c.Request.Context(), query)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":    advice.Text,
		"sources": sourceList(advice.Sources),
	})
}

func (a *App) adviceIllness(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload illnessRequest
	if !mustJSON(c, &payload) {
		return
	}
	symptoms := strings.TrimSpace(payload.Symptoms)
	if symptoms == "" {
		writeError(c, http.StatusBadRequest, "symptoms is required")
		return
	}

	advice, err := a.advisor.IllnessGuidance(c.Request.Context(), symptoms)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":    advice.Text,
		"sources": sourceList(advice.Sources),
	})
}

func (a *App) adviceEmergency(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload emergencyRequest
	if !mustJSON(c, &payload) {
		return
	}
	situation := strings.TrimSpace(payload.Situation)
	if situation == "" {
		writeError(c, http.StatusBadRequest, "situation is required")
		return
	}

	guide := a.advisor.EmergencyGuide(c.Request.Context(), situation)

	response := gin.H{
		"situation": situation,
		"text":      guide.Text,
	}
	if guide.ImageURL != "" {
		response["image_url"] = guide.ImageURL
	}
	c.JSON(http.StatusOK, response)
}

func (a *App) listEmergencyScenarios(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": emergencyScenarios})
}

func sourceList(sources []gemini.Source) []gin.H {
	items := make([]gin.H, 0, len(sources))
	for _, source := range sources {
		items = append(items, gin.H{
			"uri":   source.URI,
			"title": source.Title,
		})
	}
	return items
}
