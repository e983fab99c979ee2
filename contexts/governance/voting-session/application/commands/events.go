package commands

import (
	"encoding/json"
	"time"

	"plenary/contexts/governance/voting-session/ports"
)

func newSessionEnvelope(
	eventID string,
	eventType string,
	sessionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by session for stable ordering on
	// session-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-session",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "session_id",
		PartitionKey:     sessionID,
		Data:             payload,
	}, nil
}
