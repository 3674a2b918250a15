package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/executor"
	"codeclash/internal/arena/integrity"
	"codeclash/internal/arena/judge"
	"codeclash/internal/arena/model"
	"codeclash/internal/arena/registry"
	"codeclash/pkg/utils/response"
)

// EventStore reads back a room's recorded violation events.
type EventStore interface {
	Events(ctx context.Context, roomID string) ([]model.ViolationEvent, error)
}

// ArenaController handles the arena HTTP endpoints.
type ArenaController struct {
	engine      *executor.Engine
	rooms       *registry.Registry
	coordinator *integrity.Coordinator
	submissions *judge.Service
	archiver    *audit.Archiver
	events      EventStore
}

// NewArenaController creates a new ArenaController. archiver and events may
// be nil when the corresponding sinks are disabled.
func NewArenaController(
	engine *executor.Engine,
	rooms *registry.Registry,
	coordinator *integrity.Coordinator,
	submissions *judge.Service,
	archiver *audit.Archiver,
	events EventStore,
) *ArenaController {
	return &ArenaController{
		engine:      engine,
		rooms:       rooms,
		coordinator: coordinator,
		submissions: submissions,
		archiver:    archiver,
		events:      events,
	}
}

// RegisterRoutes attaches all arena routes to the router.
func (h *ArenaController) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/execute", h.Execute)
		v1.GET("/languages", h.Languages)

		v1.POST("/rooms", h.CreateRoom)
		v1.GET("/rooms/:id", h.GetRoom)
		v1.DELETE("/rooms/:id", h.CloseRoom)

		v1.POST("/rooms/:id/violations", h.ReportViolation)
		v1.GET("/rooms/:id/violations", h.ListViolations)
		v1.POST("/rooms/:id/submissions", h.SubmitLevel)
	}
}

// Execute runs a single program against the sandbox.
func (h *ArenaController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	result, err := h.engine.Execute(c.Request.Context(), executor.Request{
		Language:    req.Language,
		SourceCode:  req.SourceCode,
		Stdin:       req.Stdin,
		TimeLimitMs: req.TimeLimitMs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ExecuteResponse{
		Stdout:          result.Stdout,
		Stderr:          result.Stderr,
		ExecutionTimeMs: result.ExecutionTimeMs,
		ExitCode:        result.ExitCode,
	})
}

// Languages lists the runnable language ids.
func (h *ArenaController) Languages(c *gin.Context) {
	response.Success(c, LanguagesResponse{Languages: h.engine.Languages()})
}

// CreateRoom registers a room with the arena core.
func (h *ArenaController) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	players := make([]model.Player, 0, len(req.Players))
	for _, p := range req.Players {
		players = append(players, model.Player{ID: p.ID, Username: p.Username})
	}
	room := &model.Room{
		ID:           req.ID,
		Started:      req.Started,
		Players:      players,
		CurrentLevel: req.CurrentLevel,
		TotalLevels:  req.TotalLevels,
	}
	if req.LevelStartedAtMs > 0 {
		started := time.UnixMilli(req.LevelStartedAtMs)
		room.LevelStartedAt = &started
	}
	if err := h.rooms.Register(room); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CreateRoomResponse{ID: room.ID})
}

// GetRoom returns a snapshot of one room.
func (h *ArenaController) GetRoom(c *gin.Context) {
	roomID := c.Param("id")
	var snap RoomSnapshot
	err := h.rooms.WithRoom(roomID, func(room *model.Room) error {
		snap = snapshotRoom(room)
		return nil
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snap)
}

// CloseRoom removes a room and archives its violation log.
func (h *ArenaController) CloseRoom(c *gin.Context) {
	roomID := c.Param("id")
	room, ok := h.rooms.Remove(roomID)
	if !ok {
		response.NotFound(c, "Room not found")
		return
	}

	var archivePath string
	if h.archiver != nil {
		path, err := h.archiver.ArchiveRoom(room)
		if err != nil {
			response.Error(c, err)
			return
		}
		archivePath = path
	}
	response.Success(c, CloseRoomResponse{ID: roomID, ArchivePath: archivePath})
}

// ReportViolation ingests one focus-loss report for a player.
func (h *ArenaController) ReportViolation(c *gin.Context) {
	roomID := c.Param("id")
	var req ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	outcome, err := h.coordinator.HandleViolationReport(c.Request.Context(), roomID, req.PlayerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ViolationResponse{
		Action:   string(outcome.Action),
		Warnings: outcome.Count,
		Reason:   outcome.Reason,
	})
}

// ListViolations returns the recorded violation events for a room.
func (h *ArenaController) ListViolations(c *gin.Context) {
	if h.events == nil {
		response.Success(c, ViolationListResponse{Events: []model.ViolationEvent{}})
		return
	}
	events, err := h.events.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []model.ViolationEvent{}
	}
	response.Success(c, ViolationListResponse{Events: events})
}

// SubmitLevel judges a player's solution for the room's current level.
func (h *ArenaController) SubmitLevel(c *gin.Context) {
	roomID := c.Param("id")
	var req SubmitLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	tests := make([]judge.TestCase, 0, len(req.Tests))
	for _, t := range req.Tests {
		tests = append(tests, judge.TestCase{Input: t.Input, Expected: t.Expected})
	}
	sub, err := h.submissions.SubmitLevel(c.Request.Context(), roomID, req.PlayerID, judge.SubmitRequest{
		Language:             req.Language,
		SourceCode:           req.SourceCode,
		Tests:                tests,
		TimeLimitMs:          req.TimeLimitMs,
		LevelDurationSeconds: req.LevelDurationSeconds,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, sub)
}

// snapshotRoom deep-copies everything the response encodes. The copy is
// taken under the room lock; encoding happens after it is released, so no
// live map or slice may leak into the snapshot.
func snapshotRoom(room *model.Room) RoomSnapshot {
	snap := RoomSnapshot{
		ID:                  room.ID,
		Started:             room.Started,
		CurrentLevel:        room.CurrentLevel,
		TotalLevels:         room.TotalLevels,
		Players:             make([]PlayerPayload, 0, len(room.Players)),
		ViolationCounts:     make(map[string]int, len(room.ViolationCounts)),
		DisqualifiedPlayers: make([]string, 0, len(room.DisqualifiedPlayers)),
		Submissions:         make(map[int]map[string]*model.LevelSubmission, len(room.LevelSubmissions)),
		CumulativeScores:    make(map[string]*model.CumulativeScore, len(room.CumulativeScores)),
	}
	for _, p := range room.Players {
		snap.Players = append(snap.Players, PlayerPayload{ID: p.ID, Username: p.Username})
	}
	for id, count := range room.ViolationCounts {
		snap.ViolationCounts[id] = count
	}
	for id := range room.DisqualifiedPlayers {
		snap.DisqualifiedPlayers = append(snap.DisqualifiedPlayers, id)
	}
	for round, byPlayer := range room.LevelSubmissions {
		copied := make(map[string]*model.LevelSubmission, len(byPlayer))
		for id, sub := range byPlayer {
			s := *sub
			copied[id] = &s
		}
		snap.Submissions[round] = copied
	}
	for id, cumulative := range room.CumulativeScores {
		copied := *cumulative
		copied.LevelScores = make(map[int]int, len(cumulative.LevelScores))
		for round, score := range cumulative.LevelScores {
			copied.LevelScores[round] = score
		}
		snap.CumulativeScores[id] = &copied
	}
	return snap
}

// ExecuteRequest defines the sandbox execution payload.
type ExecuteRequest struct {
	Language    string `json:"language" binding:"required"`
	SourceCode  string `json:"source_code" binding:"required"`
	Stdin       string `json:"stdin"`
	TimeLimitMs int64  `json:"time_limit_ms"`
}

// ExecuteResponse defines the sandbox execution result payload.
type ExecuteResponse struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	ExitCode        int    `json:"exit_code"`
}

// LanguagesResponse lists runnable language ids.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// PlayerPayload identifies one participant.
type PlayerPayload struct {
	ID       string `json:"id" binding:"required"`
	Username string `json:"username"`
}

// CreateRoomRequest defines room registration payload.
type CreateRoomRequest struct {
	ID               string          `json:"id" binding:"required"`
	Started          bool            `json:"started"`
	Players          []PlayerPayload `json:"players" binding:"required"`
	CurrentLevel     int             `json:"current_level"`
	TotalLevels      int             `json:"total_levels"`
	LevelStartedAtMs int64           `json:"level_started_at_ms"`
}

// CreateRoomResponse acknowledges a registered room.
type CreateRoomResponse struct {
	ID string `json:"id"`
}

// CloseRoomResponse acknowledges room teardown.
type CloseRoomResponse struct {
	ID          string `json:"id"`
	ArchivePath string `json:"archive_path,omitempty"`
}

// RoomSnapshot is the read-only view of a room's state.
type RoomSnapshot struct {
	ID                  string                                    `json:"id"`
	Started             bool                                      `json:"started"`
	CurrentLevel        int                                       `json:"current_level"`
	TotalLevels         int                                       `json:"total_levels"`
	Players             []PlayerPayload                           `json:"players"`
	ViolationCounts     map[string]int                            `json:"violation_counts"`
	DisqualifiedPlayers []string                                  `json:"disqualified_players"`
	Submissions         map[int]map[string]*model.LevelSubmission `json:"submissions"`
	CumulativeScores    map[string]*model.CumulativeScore         `json:"cumulative_scores"`
}

// ViolationRequest identifies the reported player.
type ViolationRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// ViolationResponse describes the tracker's decision.
type ViolationResponse struct {
	Action   string `json:"action"`
	Warnings int    `json:"warnings"`
	Reason   string `json:"reason,omitempty"`
}

// ViolationListResponse carries a room's audit log.
type ViolationListResponse struct {
	Events []model.ViolationEvent `json:"events"`
}

// TestCasePayload is one input/expected pair.
type TestCasePayload struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// SubmitLevelRequest defines the level submission payload.
type SubmitLevelRequest struct {
	PlayerID             string            `json:"player_id" binding:"required"`
	Language             string            `json:"language" binding:"required"`
	SourceCode           string            `json:"source_code" binding:"required"`
	Tests                []TestCasePayload `json:"tests" binding:"required"`
	TimeLimitMs          int64             `json:"time_limit_ms"`
	LevelDurationSeconds int64             `json:"level_duration_seconds"`
}
