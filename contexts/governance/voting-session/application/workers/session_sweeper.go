package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

// SessionSweeper closes open sessions whose deadline passed. Each close is a
// compare-and-swap on the session version: a conflict means another writer
// got there first, so the session is skipped for this cycle and re-picked on
// the next one if still eligible.
type SessionSweeper struct {
	Sessions ports.SessionRepository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// SweepReport summarizes one sweep cycle.
type SweepReport struct {
	Closed  int
	Skipped int
	Failed  int
}

// RunOnce performs one sweep. Per-session failures are counted and logged but
// never abort the batch; only a failure to list candidates is returned.
func (s SessionSweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	logger := application.ResolveLogger(s.Logger)
	now := s.now()

	expired, err := s.Sessions.ListExpiredOpenSessions(ctx, now)
	if err != nil {
		logger.Error("session sweep listing failed",
			"event", "voting_sweep_list_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"error", err.Error(),
		)
		return SweepReport{}, err
	}
	if len(expired) == 0 {
		return SweepReport{}, nil
	}

	var report SweepReport
	for _, session := range expired {
		err := s.Sessions.CloseSession(ctx, session.SessionID, session.Version, now)
		switch {
		case err == nil:
			report.Closed++
			s.appendSessionClosed(ctx, logger, session, now)
		case errors.Is(err, domainerrors.ErrVersionConflict):
			// Another actor already moved the session; nothing is lost.
			report.Skipped++
		default:
			report.Failed++
			logger.Error("session close failed",
				"event", "voting_sweep_close_failed",
				"module", "governance/voting-session",
				"layer", "worker",
				"session_id", session.SessionID,
				"error", err.Error(),
			)
		}
	}

	logger.Info("session sweep completed",
		"event", "voting_sweep_completed",
		"module", "governance/voting-session",
		"layer", "worker",
		"closed_count", report.Closed,
		"skipped_count", report.Skipped,
		"failed_count", report.Failed,
	)
	return report, nil
}

func (s SessionSweeper) appendSessionClosed(
	ctx context.Context,
	logger *slog.Logger,
	session entities.VotingSession,
	closedAt time.Time,
) {
	if s.Outbox == nil || s.IDGen == nil {
		return
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("session closed event id generation failed",
			"event", "voting_sweep_event_id_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
		return
	}
	envelope, err := newClosedEnvelope(eventID, session, closedAt)
	if err == nil {
		err = s.Outbox.AppendOutbox(ctx, envelope)
	}
	if err != nil {
		// Event loss is tolerable here; the close itself already committed.
		logger.Error("session closed event append failed",
			"event", "voting_sweep_event_append_failed",
			"module", "governance/voting-session",
			"layer", "worker",
			"session_id", session.SessionID,
			"error", err.Error(),
		)
	}
}

func (s SessionSweeper) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
