package ports

import (
	"context"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	"plenary/internal/shared/events"
)

// AgendaRepository stores proposals. Items are never deleted.
type AgendaRepository interface {
	CreateAgendaItem(ctx context.Context, item entities.AgendaItem) error
	GetAgendaItem(ctx context.Context, itemID string) (entities.AgendaItem, error)
	ListAgendaItems(ctx context.Context) ([]entities.AgendaItem, error)
}

// SessionRepository stores voting sessions. CreateSession must enforce the
// one-session-per-agenda-item constraint atomically with the insert and
// return ErrSessionAlreadyOpen on violation. CloseSession is a conditional
// update on (sessionID, version) and returns ErrVersionConflict when the
// stored version moved.
type SessionRepository interface {
	CreateSession(ctx context.Context, session entities.VotingSession) error
	GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error)
	ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.VotingSession, error)
	CloseSession(ctx context.Context, sessionID string, version int64, closedAt time.Time) error
}

// VoteRepository is the append-only vote ledger. InsertVote must be backed by
// a uniqueness constraint on (session_id, voter_id) and return
// ErrDuplicateVote when the constraint rejects the insert.
type VoteRepository interface {
	InsertVote(ctx context.Context, vote entities.Vote) error
	HasVote(ctx context.Context, sessionID string, voterID string) (bool, error)
	CountVotes(ctx context.Context, sessionID string) (total int64, yes int64, no int64, err error)
}

// EligibilityChecker is the external capability deciding whether a voter may
// participate. Calls are bounded by the caller-supplied context; denials and
// transport failures are final from the admission engine's point of view.
type EligibilityChecker interface {
	CheckEligible(ctx context.Context, voterID string) (bool, error)
}

// TallyCache holds per-session tally results. Invalidation-driven only:
// every recorded vote must evict the session's entry.
type TallyCache interface {
	Get(sessionID string) (entities.TallyResult, bool)
	Put(sessionID string, result entities.TallyResult)
	Invalidate(sessionID string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the shared canonical envelope contract.
type EventEnvelope = events.Envelope

// OutboxWriter appends an event in the same transaction scope as the state
// change that produced it.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
