// Package model defines the room aggregate shared by the arena core.
package model

import "time"

// Submission status values for one level.
const (
	StatusCompleted    = "completed"
	StatusTimeout      = "timeout"
	StatusDisqualified = "disqualified"
	StatusPending      = "pending"
)

// MaxLevelScore is the upper bound for a single level score.
const MaxLevelScore = 2200

// Player identifies one participant in a room.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ScoreBreakdown details how a level score was composed.
type ScoreBreakdown struct {
	ParticipationBonus int     `json:"participationBonus"`
	CorrectCode        int     `json:"correctCode"`
	SpeedBonus         int     `json:"speedBonus"`
	EffortBonus        int     `json:"effortBonus"`
	RelativeBonus      int     `json:"relativeBonus"`
	ErrorCount         int     `json:"errorCount"`
	TestsPassed        int     `json:"testsPassed"`
	TestsTotal         int     `json:"testsTotal"`
	PassRatio          float64 `json:"passRatio"`
}

// LevelSubmission is the per-round per-player record the round-progression
// layer consumes. Once created for a (round, player) pair it is never
// overwritten.
type LevelSubmission struct {
	UserID           string         `json:"userId"`
	Username         string         `json:"username"`
	Score            int            `json:"score"`
	Breakdown        ScoreBreakdown `json:"breakdown"`
	TimeTakenSeconds int64          `json:"timeTakenSeconds"`
	Status           string         `json:"status"`
}

// CumulativeScore accumulates one player's scores across rounds.
// Created lazily on first submission, updated additively.
type CumulativeScore struct {
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	TotalScore  int         `json:"totalScore"`
	LevelScores map[int]int `json:"levelScores"`
}

// ViolationEvent is one append-only audit log entry.
type ViolationEvent struct {
	Type          string `json:"type"`
	PlayerID      string `json:"playerId"`
	TimestampMs   int64  `json:"timestampMs"`
	WarningNumber int    `json:"warningNumber"`
}

// ViolationTypeTabSwitch is the only violation type reported today.
const ViolationTypeTabSwitch = "TAB_SWITCH"

// Room is the mutable competition record. It is owned by the external
// orchestrator; the core reads and writes the fields below under the
// registry's per-room serialization. ViolationCounts, ViolationEvents and
// DisqualifiedPlayers are initialized by the core itself.
type Room struct {
	ID             string
	Started        bool
	Players        []Player
	CurrentLevel   int
	TotalLevels    int
	LevelStartedAt *time.Time

	// LevelSubmissions maps round -> playerID -> submission.
	LevelSubmissions map[int]map[string]*LevelSubmission
	// CumulativeScores maps playerID -> running score record.
	CumulativeScores map[string]*CumulativeScore

	ViolationCounts     map[string]int
	ViolationEvents     []ViolationEvent
	DisqualifiedPlayers map[string]bool
}

// EnsureIntegrityState lazily initializes the core-owned maps.
func (r *Room) EnsureIntegrityState() {
	if r.ViolationCounts == nil {
		r.ViolationCounts = make(map[string]int)
	}
	if r.DisqualifiedPlayers == nil {
		r.DisqualifiedPlayers = make(map[string]bool)
	}
	if r.LevelSubmissions == nil {
		r.LevelSubmissions = make(map[int]map[string]*LevelSubmission)
	}
	if r.CumulativeScores == nil {
		r.CumulativeScores = make(map[string]*CumulativeScore)
	}
}

// FindPlayer returns the player with the given id, if present.
func (r *Room) FindPlayer(playerID string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

// Submission returns the submission for (round, playerID), if present.
func (r *Room) Submission(round int, playerID string) (*LevelSubmission, bool) {
	byPlayer, ok := r.LevelSubmissions[round]
	if !ok {
		return nil, false
	}
	sub, ok := byPlayer[playerID]
	return sub, ok
}

// PutSubmission stores a submission for (round, playerID). The caller must
// have checked absence first; an existing record is never replaced.
func (r *Room) PutSubmission(round int, playerID string, sub *LevelSubmission) bool {
	r.EnsureIntegrityState()
	byPlayer, ok := r.LevelSubmissions[round]
	if !ok {
		byPlayer = make(map[string]*LevelSubmission)
		r.LevelSubmissions[round] = byPlayer
	}
	if _, exists := byPlayer[playerID]; exists {
		return false
	}
	byPlayer[playerID] = sub
	return true
}

// SubmittedCount returns how many players have a submission for the round.
func (r *Room) SubmittedCount(round int) int {
	return len(r.LevelSubmissions[round])
}
