package workers

import (
	"encoding/json"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	"plenary/contexts/governance/voting-session/ports"
)

func newClosedEnvelope(
	eventID string,
	session entities.VotingSession,
	closedAt time.Time,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(map[string]any{
		"session_id": session.SessionID,
		"item_id":    session.AgendaItemID,
		"opened_at":  session.OpenedAt.Format(time.RFC3339),
		"closes_at":  session.ClosesAt.Format(time.RFC3339),
		"closed_at":  closedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "session.closed",
		OccurredAt:       closedAt.UTC(),
		SourceService:    "voting-session",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "session_id",
		PartitionKey:     session.SessionID,
		Data:             payload,
	}, nil
}
