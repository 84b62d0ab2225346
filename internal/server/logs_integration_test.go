package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"totcare/backend/internal/advisor"
)

func TestLogsRequireBearerToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := performRequest(t, router, http.MethodGet, "/api/v1/logs", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/logs", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for malformed token, got %d", rec.Code)
	}
}

func TestUnknownUserRejectedWhenAutoCreateDisabled(t *testing.T) {
	resetDatabase(t)
	router, _ := newTestRouter(t)

	token := signToken(t, testID(), nil)
	rec := performRequest(t, router, http.MethodGet, "/api/v1/logs", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAutoCreateUserOnFirstRequest(t *testing.T) {
	resetDatabase(t)

	cfg := baseTestConfig
	cfg.AuthAutoCreateUser = true
	router, _ := newTestRouterWithConfig(t, cfg)

	userID := testID()
	token := signTokenWithConfig(t, cfg, userID, map[string]any{"provider": "wechat", "name": "测试家长"})

	rec := performRequest(t, router, http.MethodGet, "/api/v1/logs", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with auto-create, got %d: %s", rec.Code, rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var provider, name string
	err := testPool.QueryRow(
		ctx,
		`SELECT provider, name FROM "User" WHERE id = $1`,
		userID,
	).Scan(&provider, &name)
	if err != nil {
		t.Fatalf("auto-created user not found: %v", err)
	}
	if provider != "wechat" || name != "测试家长" {
		t.Fatalf("unexpected auto-created user: provider=%q name=%q", provider, name)
	}
}

func TestCreateAndListActivityLogs(t *testing.T) {
	resetDatabase(t)
	router, _ := newTestRouter(t)

	userID := seedUser(t, "")
	token := signToken(t, userID, nil)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/logs", token, map[string]any{
		"category":  "water",
		"detail":    "200ml",
		"logged_at": "2026-08-29T09:15:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create log failed: %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeJSONMap(t, rec)
	if created["category"] != "WATER" {
		t.Fatalf("expected normalized category WATER, got %v", created["category"])
	}
	logID, _ := created["log_id"].(string)
	if logID == "" {
		t.Fatal("expected log_id in create response")
	}

	seedActivityLog(t, userID, advisor.CategoryFood, "西兰花米饭", "吃得很好",
		time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	rec = performRequest(t, router, http.MethodGet, "/api/v1/logs?date=2026-08-29", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list logs failed: %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["date"] != "2026-08-29" {
		t.Fatalf("unexpected date: %v", body["date"])
	}
	logs, ok := body["logs"].([]any)
	if !ok || len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %v", body["logs"])
	}

	// Newest-first: the noon FOOD entry precedes the morning WATER entry.
	first, _ := logs[0].(map[string]any)
	second, _ := logs[1].(map[string]any)
	if first["category"] != "FOOD" || second["category"] != "WATER" {
		t.Fatalf("expected newest-first order, got %v then %v", first["category"], second["category"])
	}
	if first["note"] != "吃得很好" {
		t.Fatalf("expected note on FOOD entry, got %v", first["note"])
	}
	if _, hasNote := second["note"]; hasNote {
		t.Fatalf("entry without note must omit the field, got %v", second)
	}
}

func TestCreateActivityLogValidation(t *testing.T) {
	resetDatabase(t)
	router, _ := newTestRouter(t)

	userID := seedUser(t, "")
	token := signToken(t, userID, nil)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/logs", token, map[string]any{
		"category": "SNACK",
		"detail":   "cookie",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/logs", token, map[string]any{
		"category": "FOOD",
		"detail":   "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank detail, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/logs", token, map[string]any{
		"category":  "FOOD",
		"detail":    "apple",
		"logged_at": "yesterday",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad logged_at, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/logs?date=29-08-2026", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date filter, got %d", rec.Code)
	}
}

func TestVoiceLogDefaultsToOtherCategory(t *testing.T) {
	resetDatabase(t)
	router, _ := newTestRouter(t)

	userID := seedUser(t, "")
	token := signToken(t, userID, nil)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/logs/voice", token, map[string]any{
		"transcript": "宝宝刚刚喝了半杯水",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("voice log failed: %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["category"] != "OTHER" {
		t.Fatalf("expected OTHER default, got %v", body["category"])
	}
	if body["transcript"] != "宝宝刚刚喝了半杯水" {
		t.Fatalf("unexpected transcript: %v", body["transcript"])
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/logs/voice", token, map[string]any{
		"transcript": " ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank transcript, got %d", rec.Code)
	}
}

func TestDeleteActivityLogScopedToOwner(t *testing.T) {
	resetDatabase(t)
	router, _ := newTestRouter(t)

	ownerID := seedUser(t, "")
	otherID := seedUser(t, "")
	logID := seedActivityLog(t, ownerID, advisor.CategorySleep, "午睡2小时", "", time.Now().UTC())

	otherToken := signToken(t, otherID, nil)
	rec := performRequest(t, router, http.MethodDelete, "/api/v1/logs/"+logID, otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's log, got %d", rec.Code)
	}

	ownerToken := signToken(t, ownerID, nil)
	rec = performRequest(t, router, http.MethodDelete, "/api/v1/logs/"+logID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["deleted"] != logID {
		t.Fatalf("unexpected delete response: %v", body)
	}

	rec = performRequest(t, router, http.MethodDelete, "/api/v1/logs/"+logID, ownerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
}
