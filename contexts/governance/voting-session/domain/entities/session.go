package entities

import "time"

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

type VoteChoice string

const (
	VoteChoiceYes VoteChoice = "yes"
	VoteChoiceNo  VoteChoice = "no"
)

type TallyOutcome string

const (
	TallyOutcomeApproved TallyOutcome = "approved"
	TallyOutcomeRejected TallyOutcome = "rejected"
	TallyOutcomeTie      TallyOutcome = "tie"
)

// AgendaItem is the proposal under vote. Immutable after creation except for
// the back-reference to its session.
type AgendaItem struct {
	ItemID      string
	Title       string
	Description string
	SessionID   string
	CreatedAt   time.Time
}

// VotingSession is the time-boxed window during which votes for one agenda
// item are accepted. ClosesAt is fixed at creation and never recomputed.
// Version backs the compare-and-swap close transition.
type VotingSession struct {
	SessionID       string
	AgendaItemID    string
	OpenedAt        time.Time
	ClosesAt        time.Time
	DurationSeconds int
	Status          SessionStatus
	Version         int64
}

// AcceptsVotesAt reports whether the session admits a vote at the given
// instant. The status field alone is not enough: a session can be logically
// expired before the sweeper has transitioned it.
func (s VotingSession) AcceptsVotesAt(now time.Time) bool {
	return s.Status == SessionStatusOpen && now.UTC().Before(s.ClosesAt)
}

// Expired reports whether the deadline has passed regardless of status.
func (s VotingSession) Expired(now time.Time) bool {
	return !now.UTC().Before(s.ClosesAt)
}

// ClassifyVotes applies strict majority with explicit tie handling; an empty
// ledger is a tie.
func ClassifyVotes(yes int64, no int64) TallyOutcome {
	switch {
	case yes > no:
		return TallyOutcomeApproved
	case no > yes:
		return TallyOutcomeRejected
	default:
		return TallyOutcomeTie
	}
}

// Vote is one append-only ledger entry. VoterID is the normalized digits-only
// identifier; (SessionID, VoterID) is unique at the storage layer.
type Vote struct {
	VoteID     string
	SessionID  string
	VoterID    string
	Choice     VoteChoice
	RecordedAt time.Time
}

// TallyResult is the immutable count derived from the vote ledger at one
// read instant. Percentages are exactly 0.0 for an empty ledger.
type TallyResult struct {
	SessionID     string
	AgendaItemID  string
	ItemTitle     string
	SessionStatus SessionStatus
	OpenedAt      time.Time
	ClosesAt      time.Time
	Total         int64
	Yes           int64
	No            int64
	YesPercent    float64
	NoPercent     float64
	Outcome       TallyOutcome
}
