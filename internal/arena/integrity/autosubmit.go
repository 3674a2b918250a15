package integrity

import (
	"time"

	"codeclash/internal/arena/model"
)

// PlaceholderUsername is used when a player's display name cannot be
// resolved from the room's player list.
const PlaceholderUsername = "Unknown Player"

const defaultFallbackDuration = 300 * time.Second

// AutoSubmitter synthesizes zero-score submission records for a
// disqualified player so round-completion logic never waits on them. It
// performs pure data mutation; deciding disqualification is the tracker's
// job and notification is the coordinator's.
type AutoSubmitter struct {
	// fallbackDuration stands in for the current round's elapsed time when
	// the round start timestamp is unknown.
	fallbackDuration time.Duration
	now              func() time.Time
}

// NewAutoSubmitter creates an auto-submitter. fallback <= 0 selects the
// default of 300s.
func NewAutoSubmitter(fallback time.Duration) *AutoSubmitter {
	if fallback <= 0 {
		fallback = defaultFallbackDuration
	}
	return &AutoSubmitter{fallbackDuration: fallback, now: time.Now}
}

// AutoSubmit creates zero-score disqualified submissions for currentRound
// and every later round, skipping any (round, player) pair that already has
// a record. Calling it twice leaves existing records unchanged.
func (a *AutoSubmitter) AutoSubmit(room *model.Room, playerID string, currentRound int) {
	room.EnsureIntegrityState()

	username := PlaceholderUsername
	if p, ok := room.FindPlayer(playerID); ok {
		username = p.Username
	}

	if _, exists := room.Submission(currentRound, playerID); !exists {
		room.PutSubmission(currentRound, playerID, &model.LevelSubmission{
			UserID:           playerID,
			Username:         username,
			Score:            0,
			TimeTakenSeconds: a.currentRoundElapsed(room),
			Status:           model.StatusDisqualified,
		})

		cumulative, ok := room.CumulativeScores[playerID]
		if !ok {
			cumulative = &model.CumulativeScore{
				UserID:      playerID,
				Username:    username,
				LevelScores: make(map[int]int),
			}
			room.CumulativeScores[playerID] = cumulative
		}
		if cumulative.LevelScores == nil {
			cumulative.LevelScores = make(map[int]int)
		}
		cumulative.LevelScores[currentRound] = 0
	}

	// Rounds after the current one never ran for this player.
	for round := currentRound + 1; round <= room.TotalLevels; round++ {
		if _, exists := room.Submission(round, playerID); exists {
			continue
		}
		room.PutSubmission(round, playerID, &model.LevelSubmission{
			UserID:           playerID,
			Username:         username,
			Score:            0,
			TimeTakenSeconds: 0,
			Status:           model.StatusDisqualified,
		})
	}
}

func (a *AutoSubmitter) currentRoundElapsed(room *model.Room) int64 {
	if room.LevelStartedAt == nil {
		return int64(a.fallbackDuration.Seconds())
	}
	elapsed := a.now().Sub(*room.LevelStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return int64(elapsed.Seconds())
}
