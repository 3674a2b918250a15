package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/controller"
	"codeclash/internal/arena/executor"
	"codeclash/internal/arena/hub"
	"codeclash/internal/arena/integrity"
	"codeclash/internal/arena/judge"
	"codeclash/internal/arena/registry"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	redisSink := audit.NewRedisSink(client, "test:violations", time.Hour)

	engine := executor.NewEngine(executor.Config{})
	rooms := registry.New()
	notifier := hub.New()
	coordinator := integrity.NewCoordinator(rooms, integrity.NewTracker(3), integrity.NewAutoSubmitter(0), notifier, redisSink)
	submissions := judge.NewService(judge.NewJudge(engine), rooms, notifier)
	archiveDir := t.TempDir()
	archiver := audit.NewArchiver(archiveDir)

	ctrl := controller.NewArenaController(engine, rooms, coordinator, submissions, archiver, redisSink)
	router := gin.New()
	ctrl.RegisterRoutes(router)
	return router, archiveDir
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func createRoom(t *testing.T, router *gin.Engine, id string) {
	t.Helper()
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rooms", map[string]interface{}{
		"id":      id,
		"started": true,
		"players": []map[string]string{
			{"id": "alice", "username": "Alice"},
			{"id": "bob", "username": "Bob"},
		},
		"current_level":       1,
		"total_levels":        3,
		"level_started_at_ms": time.Now().UnixMilli(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create room: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestExecuteEndpoint(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	router, _ := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"language":    "shell",
		"source_code": "read x\necho \"got $x\"",
		"stdin":       "42\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var result controller.ExecuteResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if result.Stdout != "got 42\n" {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("unexpected exit code %d", result.ExitCode)
	}
}

func TestExecuteRejectsUnknownLanguage(t *testing.T) {
	router, _ := newTestRouter(t)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/execute", map[string]interface{}{
		"language":    "cobol",
		"source_code": "DISPLAY 'HI'.",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestDuplicateRoomRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	createRoom(t, router, "room-1")
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rooms", map[string]interface{}{
		"id":      "room-1",
		"players": []map[string]string{{"id": "alice"}},
	})
	if rec.Code == http.StatusOK {
		t.Fatalf("expected duplicate room rejection, got 200")
	}
}

func TestViolationEscalationOverHTTP(t *testing.T) {
	router, archiveDir := newTestRouter(t)
	createRoom(t, router, "room-1")

	report := func() controller.ViolationResponse {
		rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/violations", map[string]string{
			"player_id": "alice",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("violation: status %d body %s", rec.Code, rec.Body.String())
		}
		var out controller.ViolationResponse
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		return out
	}

	first := report()
	if first.Action != "warned" || first.Warnings != 1 {
		t.Fatalf("first report: %+v", first)
	}
	second := report()
	if second.Action != "warned" || second.Warnings != 2 {
		t.Fatalf("second report: %+v", second)
	}
	third := report()
	if third.Action != "disqualified" || third.Warnings != 3 {
		t.Fatalf("third report: %+v", third)
	}
	fourth := report()
	if fourth.Action != "ignored" {
		t.Fatalf("post-disqualification report: %+v", fourth)
	}

	_, resp := doJSON(t, router, http.MethodGet, "/api/v1/rooms/room-1/violations", nil)
	var list controller.ViolationListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode violations: %v", err)
	}
	if len(list.Events) != 3 {
		t.Fatalf("expected 3 recorded events, got %d", len(list.Events))
	}

	_, resp = doJSON(t, router, http.MethodGet, "/api/v1/rooms/room-1", nil)
	var snap controller.RoomSnapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.DisqualifiedPlayers) != 1 || snap.DisqualifiedPlayers[0] != "alice" {
		t.Fatalf("expected alice disqualified, got %+v", snap.DisqualifiedPlayers)
	}
	if snap.Submissions[1] == nil || snap.Submissions[1]["alice"] == nil {
		t.Fatalf("expected auto submission for alice, got %+v", snap.Submissions)
	}
	if snap.Submissions[1]["alice"].Score != 0 {
		t.Fatalf("auto submission score must be zero")
	}

	rec, resp := doJSON(t, router, http.MethodDelete, "/api/v1/rooms/room-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close room: status %d", rec.Code)
	}
	var closed controller.CloseRoomResponse
	if err := json.Unmarshal(resp.Data, &closed); err != nil {
		t.Fatalf("decode close: %v", err)
	}
	if closed.ArchivePath == "" {
		t.Fatalf("expected archive written under %s", archiveDir)
	}
	events, err := audit.ReadArchive(closed.ArchivePath)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 archived events, got %d", len(events))
	}
}

// Snapshot encoding happens after the room lock is released, so reads must
// never share state with writers still escalating violations.
func TestGetRoomConcurrentWithViolationReports(t *testing.T) {
	router, _ := newTestRouter(t)

	const playerCount = 8
	players := make([]map[string]string, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		id := fmt.Sprintf("p%d", i)
		players = append(players, map[string]string{"id": id, "username": id})
	}
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rooms", map[string]interface{}{
		"id":                  "room-1",
		"started":             true,
		"players":             players,
		"current_level":       1,
		"total_levels":        3,
		"level_started_at_ms": time.Now().UnixMilli(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create room: status %d body %s", rec.Code, rec.Body.String())
	}

	var wg sync.WaitGroup
	for i := 0; i < playerCount; i++ {
		playerID := fmt.Sprintf("p%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				body, _ := json.Marshal(map[string]string{"player_id": playerID})
				req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/violations", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				if w.Code != http.StatusOK {
					t.Errorf("violation for %s: status %d body %s", playerID, w.Code, w.Body.String())
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1", nil)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				if w.Code != http.StatusOK {
					t.Errorf("get room: status %d body %s", w.Code, w.Body.String())
				}
			}
		}()
	}
	wg.Wait()

	_, resp := doJSON(t, router, http.MethodGet, "/api/v1/rooms/room-1", nil)
	var snap controller.RoomSnapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.DisqualifiedPlayers) != playerCount {
		t.Fatalf("expected all %d players disqualified, got %d", playerCount, len(snap.DisqualifiedPlayers))
	}
	for i := 0; i < playerCount; i++ {
		id := fmt.Sprintf("p%d", i)
		if snap.ViolationCounts[id] != 3 {
			t.Fatalf("player %s: expected 3 violations, got %d", id, snap.ViolationCounts[id])
		}
		if snap.CumulativeScores[id] == nil || snap.CumulativeScores[id].TotalScore != 0 {
			t.Fatalf("player %s: expected zeroed cumulative score, got %+v", id, snap.CumulativeScores[id])
		}
	}
}

func TestSubmitLevelOverHTTP(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	router, _ := newTestRouter(t)
	createRoom(t, router, "room-1")

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/submissions", map[string]interface{}{
		"player_id":              "alice",
		"language":               "shell",
		"source_code":            "read x\necho \"$x\"",
		"tests":                  []map[string]string{{"input": "7\n", "expected": "7\n"}},
		"level_duration_seconds": 300,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body.String())
	}
	var sub struct {
		UserID string `json:"userId"`
		Score  int    `json:"score"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.UserID != "alice" || sub.Status != "completed" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if sub.Score <= 0 {
		t.Fatalf("expected positive score, got %d", sub.Score)
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/rooms/room-1/submissions", map[string]interface{}{
		"player_id":   "alice",
		"language":    "shell",
		"source_code": "echo again",
		"tests":       []map[string]string{{"input": "", "expected": "again\n"}},
	})
	if rec.Code == http.StatusOK {
		t.Fatalf("expected duplicate submission rejection")
	}

	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/rooms/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing room, got %d", rec.Code)
	}
}
