package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	"plenary/contexts/governance/voting-session/ports"
)

const (
	sessionClosedTopic         = "session.closed"
	sessionResultTopic         = "session.result"
	defaultResultConsumerGroup = "voting-session-results-cg"
)

// ResultAnnouncer consumes session.closed events and publishes the final
// tally of each closed session on the result topic.
type ResultAnnouncer struct {
	Subscriber    ports.EventSubscriber
	Publisher     ports.EventPublisher
	Sessions      ports.SessionRepository
	Votes         ports.VoteRepository
	IDGen         ports.IDGenerator
	Clock         ports.Clock
	ConsumerGroup string
	Logger        *slog.Logger
}

type sessionClosedPayload struct {
	SessionID string `json:"session_id"`
}

func (a ResultAnnouncer) Start(ctx context.Context) error {
	group := a.ConsumerGroup
	if group == "" {
		group = defaultResultConsumerGroup
	}
	return a.Subscriber.Subscribe(ctx, sessionClosedTopic, group, a.handleClosed)
}

func (a ResultAnnouncer) handleClosed(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(a.Logger)

	var payload sessionClosedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode session closed payload: %w", err)
	}
	if payload.SessionID == "" {
		return fmt.Errorf("session closed event missing session_id")
	}

	session, err := a.Sessions.GetSession(ctx, payload.SessionID)
	if err != nil {
		logger.Error("result announcement session load failed",
			"event", "voting_result_session_load_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"session_id", payload.SessionID,
			"error", err.Error(),
		)
		return err
	}
	total, yes, no, err := a.Votes.CountVotes(ctx, payload.SessionID)
	if err != nil {
		logger.Error("result announcement count failed",
			"event", "voting_result_count_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"session_id", payload.SessionID,
			"error", err.Error(),
		)
		return err
	}
	outcome := entities.ClassifyVotes(yes, no)

	eventID, err := a.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if a.Clock != nil {
		now = a.Clock.Now().UTC()
	}
	resultData, err := json.Marshal(map[string]any{
		"session_id": session.SessionID,
		"item_id":    session.AgendaItemID,
		"total":      total,
		"yes":        yes,
		"no":         no,
		"outcome":    string(outcome),
	})
	if err != nil {
		return err
	}
	envelope := ports.EventEnvelope{
		EventID:          eventID,
		EventType:        sessionResultTopic,
		OccurredAt:       now,
		SourceService:    "voting-session",
		TraceID:          event.TraceID,
		SchemaVersion:    1,
		PartitionKeyPath: "session_id",
		PartitionKey:     session.SessionID,
		Data:             resultData,
	}
	if err := a.Publisher.Publish(ctx, sessionResultTopic, envelope); err != nil {
		logger.Error("result announcement publish failed",
			"event", "voting_result_publish_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("session result announced",
		"event", "voting_result_announced",
		"module", "governance/voting-session",
		"layer", "worker",
		"session_id", session.SessionID,
		"total_votes", total,
		"outcome", string(outcome),
	)
	return nil
}
