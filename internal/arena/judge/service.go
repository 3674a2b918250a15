package judge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"codeclash/internal/arena/integrity"
	"codeclash/internal/arena/model"
	"codeclash/internal/arena/registry"
	appErr "codeclash/pkg/errors"
	"codeclash/pkg/utils/logger"
)

// SubmitRequest carries one player's solution for the current round.
type SubmitRequest struct {
	Language             string
	SourceCode           string
	Tests                []TestCase
	TimeLimitMs          int64
	LevelDurationSeconds int64
}

// Service judges submissions and records them on the room. Test execution
// happens outside the room lock; only the record write is serialized.
type Service struct {
	judge    *Judge
	rooms    *registry.Registry
	notifier integrity.Notifier
	now      func() time.Time
}

// NewService wires the submission pipeline. notifier may be nil.
func NewService(judge *Judge, rooms *registry.Registry, notifier integrity.Notifier) *Service {
	return &Service{judge: judge, rooms: rooms, notifier: notifier, now: time.Now}
}

// SubmitLevel runs the submission against the round's tests, scores it and
// stores the level record. An existing record for (round, player) is a hard
// precondition failure; a prior submission is never overwritten.
func (s *Service) SubmitLevel(ctx context.Context, roomID, playerID string, req SubmitRequest) (model.LevelSubmission, error) {
	report, err := s.judge.RunTests(ctx, req.Language, req.SourceCode, req.Tests, req.TimeLimitMs)
	if err != nil {
		return model.LevelSubmission{}, err
	}

	var (
		submission model.LevelSubmission
		progress   model.RoundProgress
	)
	err = s.rooms.WithRoom(roomID, func(room *model.Room) error {
		if !room.Started {
			return appErr.New(appErr.RoomNotActive)
		}
		player, ok := room.FindPlayer(playerID)
		if !ok {
			return appErr.Newf(appErr.PlayerNotInRoom, "player %s is not in room %s", playerID, roomID)
		}

		round := room.CurrentLevel
		if _, exists := room.Submission(round, playerID); exists {
			return appErr.New(appErr.SubmissionExists)
		}

		timeTaken := int64(0)
		if room.LevelStartedAt != nil {
			timeTaken = int64(s.now().Sub(*room.LevelStartedAt).Seconds())
			if timeTaken < 0 {
				timeTaken = 0
			}
		}

		breakdown := ComputeBreakdown(ScoreInput{
			Report:               report,
			TimeTakenSeconds:     timeTaken,
			LevelDurationSeconds: req.LevelDurationSeconds,
			SubmissionOrder:      room.SubmittedCount(round) + 1,
			TotalPlayers:         len(room.Players),
		})
		status := model.StatusCompleted
		if report.AllTimedOut() {
			status = model.StatusTimeout
		}

		submission = model.LevelSubmission{
			UserID:           playerID,
			Username:         player.Username,
			Score:            TotalScore(breakdown),
			Breakdown:        breakdown,
			TimeTakenSeconds: timeTaken,
			Status:           status,
		}
		room.PutSubmission(round, playerID, &submission)
		s.applyCumulative(room, player, round, submission.Score)

		progress = model.RoundProgress{
			PlayerID:       playerID,
			Username:       player.Username,
			TotalSubmitted: room.SubmittedCount(round),
			TotalPlayers:   len(room.Players),
			Round:          round,
		}
		return nil
	})
	if err != nil {
		return model.LevelSubmission{}, err
	}

	if s.notifier != nil {
		s.notifier.Broadcast(ctx, roomID, integrity.EventRoundProgress, progress)
	}
	logger.Info(ctx, "level submission recorded",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("score", submission.Score),
		zap.Int("tests_passed", submission.Breakdown.TestsPassed))
	return submission, nil
}

// applyCumulative adds the level score to the player's running total.
// Totals only ever grow.
func (s *Service) applyCumulative(room *model.Room, player model.Player, round, score int) {
	cumulative, ok := room.CumulativeScores[player.ID]
	if !ok {
		cumulative = &model.CumulativeScore{
			UserID:      player.ID,
			Username:    player.Username,
			LevelScores: make(map[int]int),
		}
		room.CumulativeScores[player.ID] = cumulative
	}
	if cumulative.LevelScores == nil {
		cumulative.LevelScores = make(map[int]int)
	}
	cumulative.LevelScores[round] = score
	cumulative.TotalScore += score
}
