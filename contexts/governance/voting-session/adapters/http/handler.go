package httpadapter

import (
	"context"

	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/application/queries"
	"plenary/contexts/governance/voting-session/domain/entities"
	httptransport "plenary/contexts/governance/voting-session/transport/http"
	"plenary/internal/shared/cpf"
)

type Handler struct {
	Agenda   commands.AgendaUseCase
	Sessions commands.SessionUseCase
	Votes    commands.VoteUseCase
	Tallies  queries.TallyUseCase
}

func (h Handler) CreateAgendaItemHandler(
	ctx context.Context,
	req httptransport.CreateAgendaItemRequest,
) (httptransport.AgendaItemResponse, error) {
	item, err := h.Agenda.CreateAgendaItem(ctx, commands.CreateAgendaItemCommand{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.AgendaItemResponse{}, err
	}
	return mapAgendaItem(item, nil), nil
}

func (h Handler) GetAgendaItemHandler(ctx context.Context, itemID string) (httptransport.AgendaItemResponse, error) {
	item, err := h.Agenda.GetAgendaItem(ctx, itemID)
	if err != nil {
		return httptransport.AgendaItemResponse{}, err
	}
	return mapAgendaItem(item, h.resolveSession(ctx, item.SessionID)), nil
}

func (h Handler) ListAgendaItemsHandler(ctx context.Context) (httptransport.AgendaItemListResponse, error) {
	items, err := h.Agenda.ListAgendaItems(ctx)
	if err != nil {
		return httptransport.AgendaItemListResponse{}, err
	}
	resp := httptransport.AgendaItemListResponse{
		Items: make([]httptransport.AgendaItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapAgendaItem(item, h.resolveSession(ctx, item.SessionID)))
	}
	return resp, nil
}

func (h Handler) OpenSessionHandler(
	ctx context.Context,
	req httptransport.OpenSessionRequest,
) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.OpenSession(ctx, commands.OpenSessionCommand{
		AgendaItemID:    req.AgendaItemID,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session), nil
}

func (h Handler) GetSessionHandler(ctx context.Context, sessionID string) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session), nil
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	sessionID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.VoteResponse, error) {
	vote, err := h.Votes.SubmitVote(ctx, commands.SubmitVoteCommand{
		SessionID: sessionID,
		VoterID:   req.VoterID,
		Choice:    entities.VoteChoice(req.Choice),
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		VoteID:      vote.VoteID,
		SessionID:   vote.SessionID,
		MaskedVoter: cpf.Mask(vote.VoterID),
		Choice:      string(vote.Choice),
		RecordedAt:  vote.RecordedAt,
	}, nil
}

func (h Handler) GetTallyHandler(ctx context.Context, sessionID string) (httptransport.TallyResponse, error) {
	result, err := h.Tallies.Tally(ctx, sessionID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		SessionID:     result.SessionID,
		AgendaItemID:  result.AgendaItemID,
		ItemTitle:     result.ItemTitle,
		SessionStatus: string(result.SessionStatus),
		OpenedAt:      result.OpenedAt,
		ClosesAt:      result.ClosesAt,
		Total:         result.Total,
		Yes:           result.Yes,
		No:            result.No,
		YesPercent:    result.YesPercent,
		NoPercent:     result.NoPercent,
		Outcome:       string(result.Outcome),
	}, nil
}

func (h Handler) resolveSession(ctx context.Context, sessionID string) *httptransport.SessionResponse {
	if sessionID == "" {
		return nil
	}
	session, err := h.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil
	}
	resp := mapSession(session)
	return &resp
}

func mapAgendaItem(item entities.AgendaItem, session *httptransport.SessionResponse) httptransport.AgendaItemResponse {
	return httptransport.AgendaItemResponse{
		ItemID:      item.ItemID,
		Title:       item.Title,
		Description: item.Description,
		CreatedAt:   item.CreatedAt,
		Session:     session,
	}
}

func mapSession(session entities.VotingSession) httptransport.SessionResponse {
	return httptransport.SessionResponse{
		SessionID:       session.SessionID,
		AgendaItemID:    session.AgendaItemID,
		OpenedAt:        session.OpenedAt,
		ClosesAt:        session.ClosesAt,
		DurationSeconds: session.DurationSeconds,
		Status:          string(session.Status),
	}
}
