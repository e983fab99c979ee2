package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

// OpenSessionCommand opens the single time-boxed voting window for one
// agenda item. DurationSeconds <= 0 means "use the configured default".
type OpenSessionCommand struct {
	AgendaItemID    string
	DurationSeconds int
}

// SessionUseCase owns the session lifecycle: open and describe. There is no
// close operation here; the sweeper is the only writer of the OPEN->CLOSED
// transition.
type SessionUseCase struct {
	Agenda          ports.AgendaRepository
	Sessions        ports.SessionRepository
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	DefaultDuration time.Duration
	Logger          *slog.Logger
}

func (uc SessionUseCase) OpenSession(ctx context.Context, cmd OpenSessionCommand) (entities.VotingSession, error) {
	logger := application.ResolveLogger(uc.Logger)
	itemID := strings.TrimSpace(cmd.AgendaItemID)
	logger.Info("session open processing started",
		"event", "voting_session_open_started",
		"module", "governance/voting-session",
		"layer", "application",
		"item_id", itemID,
		"duration_seconds", cmd.DurationSeconds,
	)

	item, err := uc.Agenda.GetAgendaItem(ctx, itemID)
	if err != nil {
		return entities.VotingSession{}, err
	}
	// Fast-path rejection. The storage-level unique constraint on
	// agenda_item_id remains the authority when two opens race.
	if strings.TrimSpace(item.SessionID) != "" {
		logger.Warn("session open rejected: item already has a session",
			"event", "voting_session_open_already_open",
			"module", "governance/voting-session",
			"layer", "application",
			"item_id", itemID,
			"session_id", item.SessionID,
		)
		return entities.VotingSession{}, domainerrors.ErrSessionAlreadyOpen
	}

	duration := uc.resolveDuration(cmd.DurationSeconds)
	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.VotingSession{}, err
	}
	openedAt := uc.now()
	session := entities.VotingSession{
		SessionID:       sessionID,
		AgendaItemID:    item.ItemID,
		OpenedAt:        openedAt,
		ClosesAt:        openedAt.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		Status:          entities.SessionStatusOpen,
		Version:         1,
	}
	if err := uc.Sessions.CreateSession(ctx, session); err != nil {
		return entities.VotingSession{}, err
	}
	logger.Info("voting session opened",
		"event", "voting_session_opened",
		"module", "governance/voting-session",
		"layer", "application",
		"session_id", session.SessionID,
		"item_id", session.AgendaItemID,
		"duration_seconds", session.DurationSeconds,
		"closes_at", session.ClosesAt.Format(time.RFC3339),
	)
	return session, nil
}

func (uc SessionUseCase) GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	return uc.Sessions.GetSession(ctx, strings.TrimSpace(sessionID))
}

func (uc SessionUseCase) resolveDuration(requested int) int {
	if requested >= 1 {
		return requested
	}
	fallback := uc.DefaultDuration
	if fallback < time.Second {
		fallback = 60 * time.Second
	}
	return int(fallback / time.Second)
}

func (uc SessionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
