package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
	"plenary/internal/shared/cpf"
)

// SubmitVoteCommand is the write-model input for vote admission. VoterID may
// arrive formatted; normalization happens here.
type SubmitVoteCommand struct {
	SessionID string
	VoterID   string
	Choice    entities.VoteChoice
}

// VoteUseCase is the admission engine: it validates one vote against the
// session window and the eligibility capability, then records it. Exactly
// once per (session, voter) is guaranteed by the ledger's uniqueness
// constraint, not by the in-process pre-check.
type VoteUseCase struct {
	Sessions    ports.SessionRepository
	Votes       ports.VoteRepository
	Eligibility ports.EligibilityChecker
	Tallies     ports.TallyCache
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	sessionID := strings.TrimSpace(cmd.SessionID)
	voterID := cpf.Normalize(cmd.VoterID)
	logger.Info("vote submission started",
		"event", "voting_vote_submit_started",
		"module", "governance/voting-session",
		"layer", "application",
		"session_id", sessionID,
		"voter_id", cpf.Mask(voterID),
		"choice", string(cmd.Choice),
	)

	if cmd.Choice != entities.VoteChoiceYes && cmd.Choice != entities.VoteChoiceNo {
		return entities.Vote{}, domainerrors.ErrInvalidVoteInput
	}
	if !cpf.Valid(voterID) {
		logger.Warn("vote rejected: malformed voter identifier",
			"event", "voting_vote_invalid_voter_id",
			"module", "governance/voting-session",
			"layer", "application",
			"session_id", sessionID,
			"voter_id", cpf.Mask(voterID),
		)
		return entities.Vote{}, domainerrors.ErrInvalidVoterID
	}

	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.Vote{}, err
	}

	now := uc.now()
	// Advisory window check: rejects late votes cheaply and with a precise
	// error even before the sweeper has transitioned the session.
	if !session.AcceptsVotesAt(now) {
		logger.Warn("vote rejected: session window closed",
			"event", "voting_vote_session_closed",
			"module", "governance/voting-session",
			"layer", "application",
			"session_id", sessionID,
			"voter_id", cpf.Mask(voterID),
		)
		return entities.Vote{}, domainerrors.ErrSessionClosed
	}

	eligible, err := uc.Eligibility.CheckEligible(ctx, voterID)
	if err != nil || !eligible {
		// Denials and transport failures are final here; the whole submission
		// is safe to retry because admission is idempotent per voter.
		logger.Warn("vote rejected: voter not eligible",
			"event", "voting_vote_not_eligible",
			"module", "governance/voting-session",
			"layer", "application",
			"session_id", sessionID,
			"voter_id", cpf.Mask(voterID),
		)
		return entities.Vote{}, domainerrors.ErrVoterNotEligible
	}

	// Fast path only. Two concurrent submissions for the same voter can both
	// pass this check; the insert below settles the race.
	if exists, err := uc.Votes.HasVote(ctx, sessionID, voterID); err != nil {
		return entities.Vote{}, err
	} else if exists {
		return entities.Vote{}, domainerrors.ErrDuplicateVote
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:     voteID,
		SessionID:  sessionID,
		VoterID:    voterID,
		Choice:     cmd.Choice,
		RecordedAt: now,
	}
	if err := uc.Votes.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVote) {
			logger.Warn("vote rejected at commit: duplicate",
				"event", "voting_vote_duplicate_at_commit",
				"module", "governance/voting-session",
				"layer", "application",
				"session_id", sessionID,
				"voter_id", cpf.Mask(voterID),
			)
			return entities.Vote{}, domainerrors.ErrDuplicateVote
		}
		return entities.Vote{}, err
	}

	if uc.Tallies != nil {
		uc.Tallies.Invalidate(sessionID)
	}
	if err := uc.appendVoteRecorded(ctx, vote, now); err != nil {
		// The ledger insert already committed; event loss is tolerable here.
		logger.Error("vote recorded event append failed",
			"event", "voting_vote_event_append_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"vote_id", vote.VoteID,
			"session_id", vote.SessionID,
			"error", err.Error(),
		)
	}

	logger.Info("vote recorded",
		"event", "voting_vote_recorded",
		"module", "governance/voting-session",
		"layer", "application",
		"vote_id", vote.VoteID,
		"session_id", vote.SessionID,
		"voter_id", cpf.Mask(vote.VoterID),
		"choice", string(vote.Choice),
	)
	return vote, nil
}

func (uc VoteUseCase) appendVoteRecorded(ctx context.Context, vote entities.Vote, occurredAt time.Time) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newSessionEnvelope(eventID, "vote.recorded", vote.SessionID, occurredAt, map[string]any{
		"vote_id":     vote.VoteID,
		"session_id":  vote.SessionID,
		"voter_id":    cpf.Mask(vote.VoterID),
		"choice":      string(vote.Choice),
		"recorded_at": occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
