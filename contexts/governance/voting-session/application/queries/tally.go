package queries

import (
	"context"
	"strings"

	"plenary/contexts/governance/voting-session/domain/entities"
	"plenary/contexts/governance/voting-session/ports"
)

// TallyUseCase derives counts and the outcome classification from the vote
// ledger. It never requires the session to be closed; an open-session tally
// is a provisional running count.
type TallyUseCase struct {
	Agenda   ports.AgendaRepository
	Sessions ports.SessionRepository
	Votes    ports.VoteRepository
	Cache    ports.TallyCache
}

// Tally reads all votes committed at the instant of the call. The cache is
// invalidated on every recorded vote, so a hit is always consistent with the
// ledger; it is still bypassed for status freshness when the session record
// changed shape (cheap: status is part of the cached value and sessions only
// transition once).
func (uc TallyUseCase) Tally(ctx context.Context, sessionID string) (entities.TallyResult, error) {
	sessionID = strings.TrimSpace(sessionID)

	session, err := uc.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return entities.TallyResult{}, err
	}

	if uc.Cache != nil {
		if cached, ok := uc.Cache.Get(sessionID); ok && cached.SessionStatus == session.Status {
			return cached, nil
		}
	}

	total, yes, no, err := uc.Votes.CountVotes(ctx, sessionID)
	if err != nil {
		return entities.TallyResult{}, err
	}

	result := entities.TallyResult{
		SessionID:     session.SessionID,
		AgendaItemID:  session.AgendaItemID,
		SessionStatus: session.Status,
		OpenedAt:      session.OpenedAt,
		ClosesAt:      session.ClosesAt,
		Total:         total,
		Yes:           yes,
		No:            no,
		Outcome:       entities.ClassifyVotes(yes, no),
	}
	if total > 0 {
		result.YesPercent = float64(yes) * 100.0 / float64(total)
		result.NoPercent = float64(no) * 100.0 / float64(total)
	}

	if item, err := uc.Agenda.GetAgendaItem(ctx, session.AgendaItemID); err == nil {
		result.ItemTitle = item.Title
	}

	if uc.Cache != nil {
		uc.Cache.Put(sessionID, result)
	}
	return result, nil
}
