package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"totcare/backend/internal/advisor"
	"totcare/backend/internal/config"
)

type App struct {
	cfg     config.Config
	db      *pgxpool.Pool
	advisor *advisor.Service
}

type AuthUser struct {
	ID       string
	Provider string
	Name     string
}

func New(cfg config.Config, db *pgxpool.Pool, advisorSvc *advisor.Service) *App {
	return &App{cfg: cfg, db: db, advisor: advisorSvc}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.GET("/logs", a.listActivityLogs)
	api.POST("/logs", a.createActivityLog)
	api.POST("/logs/voice", a.createVoiceActivityLog)
	api.DELETE("/logs/:log_id", a.deleteActivityLog)

	api.POST("/advice/summary", a.adviceDailySummary)
	api.POST("/advice/knowledge", a.adviceKnowledge)
	api.POST("/advice/illness", a.adviceIllness)
	api.POST("/advice/emergency", a.adviceEmergency)
	api.GET("/emergency/scenarios", a.listEmergencyScenarios)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "totcare-api",
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		user, err := a.getOrCreateUser(c.Request.Context(), sub, claims)
		if err != nil {
			writeError(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set("authUser", user)
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func providerFromClaim(raw any) string {
	if s, ok := raw.(string); ok {
		switch s {
		case "apple", "google", "wechat", "phone":
			return s
		}
	}
	return "phone"
}

func (a *App) getOrCreateUser(ctx context.Context, userID string, claims jwt.MapClaims) (AuthUser, error) {
	user := AuthUser{}
	err := a.db.QueryRow(
		ctx,
		`SELECT id, provider, name FROM "User" WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Provider, &user.Name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, err
	}
	if !a.cfg.AuthAutoCreateUser {
		return AuthUser{}, errors.New("User not found")
	}

	provider := providerFromClaim(claims["provider"])
	name := ""
	if rawName, ok := claims["name"].(string); ok {
		name = strings.TrimSpace(rawName)
	}
	if name == "" {
		name = fmt.Sprintf("user-%s", truncate(userID, 8))
	}

	if _, err := a.db.Exec(
		ctx,
		`INSERT INTO "User" (id, provider, name, "createdAt")
		 VALUES ($1, $2, $3, NOW())`,
		userID,
		provider,
		name,
	); err != nil {
		return AuthUser{}, err
	}

	return AuthUser{ID: userID, Provider: provider, Name: name}, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}

func authUserFromContext(c *gin.Context) (AuthUser, bool) {
	raw, ok := c.Get("authUser")
	if !ok {
		return AuthUser{}, false
	}
	user, ok := raw.(AuthUser)
	return user, ok
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
