package model

// Outbound payloads produced by the integrity coordinator and delivered by
// the notification layer.

// WarningMessage is sent to the offending player only.
type WarningMessage struct {
	Warnings    int    `json:"warnings"`
	MaxWarnings int    `json:"maxWarnings"`
	Message     string `json:"message"`
}

// DisqualifiedBroadcast is sent to the whole room when a player is
// disqualified.
type DisqualifiedBroadcast struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// RoundProgress is broadcast after an auto-submission so round completion
// logic never waits on a disqualified player.
type RoundProgress struct {
	PlayerID       string `json:"playerId"`
	Username       string `json:"username"`
	TotalSubmitted int    `json:"totalSubmitted"`
	TotalPlayers   int    `json:"totalPlayers"`
	Round          int    `json:"round"`
}
