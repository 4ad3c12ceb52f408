package models

import "time"

// MatchQueueEntry is the pending matchmaking state of one user. There is at
// most one entry per user.
type MatchQueueEntry struct {
	UserID           string    `json:"userId"`
	GenderPreference Gender    `json:"genderPreference"`
	Retries          int       `json:"retries"`
	MaxRetries       int       `json:"maxRetries"`
	JoinedAt         time.Time `json:"joinedAt"`
}

type MatchRequest struct {
	UserID           string
	GenderPreference Gender
	MaxRetries       int
}

type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusRetrying  MatchStatus = "retrying"
	MatchStatusExhausted MatchStatus = "exhausted"
)

// MatchOutcome is the result of one matchmaking request. Candidate, RoomID
// and FollowOpportunityID are set only when Status is MatchStatusMatched;
// Retries and MaxRetries only when it is MatchStatusRetrying.
type MatchOutcome struct {
	Status              MatchStatus
	Candidate           *PublicUser
	RoomID              string
	FollowOpportunityID string
	Retries             int
	MaxRetries          int
}
