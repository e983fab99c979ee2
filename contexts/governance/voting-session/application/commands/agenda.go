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

// CreateAgendaItemCommand is the write-model input for proposal creation.
type CreateAgendaItemCommand struct {
	Title       string
	Description string
}

// AgendaUseCase owns agenda item creation and reads. Items are immutable
// after creation; the session back-reference is resolved at read time.
type AgendaUseCase struct {
	Agenda ports.AgendaRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc AgendaUseCase) CreateAgendaItem(ctx context.Context, cmd CreateAgendaItemCommand) (entities.AgendaItem, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	description := strings.TrimSpace(cmd.Description)
	if title == "" || description == "" {
		logger.Warn("agenda item validation failed",
			"event", "voting_agenda_create_validation_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"title", title,
		)
		return entities.AgendaItem{}, domainerrors.ErrInvalidAgendaInput
	}

	itemID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.AgendaItem{}, err
	}
	item := entities.AgendaItem{
		ItemID:      itemID,
		Title:       title,
		Description: description,
		CreatedAt:   uc.now(),
	}
	if err := uc.Agenda.CreateAgendaItem(ctx, item); err != nil {
		return entities.AgendaItem{}, err
	}
	logger.Info("agenda item created",
		"event", "voting_agenda_created",
		"module", "governance/voting-session",
		"layer", "application",
		"item_id", item.ItemID,
		"title", item.Title,
	)
	return item, nil
}

func (uc AgendaUseCase) GetAgendaItem(ctx context.Context, itemID string) (entities.AgendaItem, error) {
	return uc.Agenda.GetAgendaItem(ctx, strings.TrimSpace(itemID))
}

func (uc AgendaUseCase) ListAgendaItems(ctx context.Context) ([]entities.AgendaItem, error) {
	return uc.Agenda.ListAgendaItems(ctx)
}

func (uc AgendaUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
