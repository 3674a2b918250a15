package judge

import (
	"math"

	"codeclash/internal/arena/model"
)

// Breakdown bounds.
const (
	maxParticipationBonus = 50
	maxCorrectCode        = 1000
	maxSpeedBonus         = 500
	maxEffortBonus        = 150
	maxRelativeBonus      = 500
)

// ScoreInput feeds the deterministic score computation.
type ScoreInput struct {
	Report TestReport
	// TimeTakenSeconds is elapsed time since the round started.
	TimeTakenSeconds int64
	// LevelDurationSeconds is the round's full time budget.
	LevelDurationSeconds int64
	// SubmissionOrder is the 1-based position among the round's
	// submissions.
	SubmissionOrder int
	TotalPlayers    int
}

// ComputeBreakdown derives the score breakdown from a test run. All
// components are pure functions of the input; equal inputs always score
// equally.
func ComputeBreakdown(in ScoreInput) model.ScoreBreakdown {
	report := in.Report
	ratio := report.PassRatio()

	breakdown := model.ScoreBreakdown{
		ParticipationBonus: maxParticipationBonus,
		CorrectCode:        int(math.Round(ratio * maxCorrectCode)),
		SpeedBonus:         speedBonus(in, ratio),
		EffortBonus:        effortBonus(report),
		RelativeBonus:      relativeBonus(in, ratio),
		ErrorCount:         report.ErrorCount,
		TestsPassed:        report.Passed,
		TestsTotal:         report.Total,
		PassRatio:          ratio,
	}
	return breakdown
}

// TotalScore sums the breakdown, capped at the level maximum.
func TotalScore(b model.ScoreBreakdown) int {
	total := b.ParticipationBonus + b.CorrectCode + b.SpeedBonus + b.EffortBonus + b.RelativeBonus
	if total > model.MaxLevelScore {
		total = model.MaxLevelScore
	}
	if total < 0 {
		total = 0
	}
	return total
}

// speedBonus rewards remaining round time, scaled by correctness so a fast
// wrong answer earns nothing.
func speedBonus(in ScoreInput, ratio float64) int {
	if in.LevelDurationSeconds <= 0 || ratio == 0 {
		return 0
	}
	remaining := in.LevelDurationSeconds - in.TimeTakenSeconds
	if remaining <= 0 {
		return 0
	}
	fraction := float64(remaining) / float64(in.LevelDurationSeconds)
	return int(math.Round(fraction * ratio * maxSpeedBonus))
}

// effortBonus rewards clean runs: the fewer erroring cases, the higher.
func effortBonus(report TestReport) int {
	if report.Total == 0 {
		return 0
	}
	cleanRatio := 1 - float64(report.ErrorCount)/float64(report.Total)
	if cleanRatio < 0 {
		cleanRatio = 0
	}
	return int(math.Round(cleanRatio * maxEffortBonus))
}

// relativeBonus rewards fully correct solutions by submission order: the
// first correct submitter takes the maximum, later ones linearly less.
func relativeBonus(in ScoreInput, ratio float64) int {
	if ratio < 1 || in.TotalPlayers <= 0 || in.SubmissionOrder <= 0 {
		return 0
	}
	position := in.SubmissionOrder
	if position > in.TotalPlayers {
		position = in.TotalPlayers
	}
	share := float64(in.TotalPlayers-position+1) / float64(in.TotalPlayers)
	return int(math.Round(share * maxRelativeBonus))
}
