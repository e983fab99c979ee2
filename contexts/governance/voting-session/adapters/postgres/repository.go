package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateAgendaItem(ctx context.Context, item entities.AgendaItem) error {
	row := agendaItemModelFromEntity(item)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("voting_repo_create_agenda_item_failed", err,
			"item_id", strings.TrimSpace(item.ItemID),
		)
	}
	return nil
}

func (r *Repository) GetAgendaItem(ctx context.Context, itemID string) (entities.AgendaItem, error) {
	var row agendaItemModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(itemID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AgendaItem{}, domainerrors.ErrAgendaItemNotFound
		}
		return entities.AgendaItem{}, r.logError("voting_repo_get_agenda_item_failed", err,
			"item_id", strings.TrimSpace(itemID),
		)
	}
	item := row.toEntity()
	item.SessionID = r.resolveSessionID(ctx, item.ItemID)
	return item, nil
}

func (r *Repository) ListAgendaItems(ctx context.Context) ([]entities.AgendaItem, error) {
	var rows []agendaItemModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_agenda_items_failed", err)
	}
	items := make([]entities.AgendaItem, 0, len(rows))
	for _, row := range rows {
		item := row.toEntity()
		item.SessionID = r.resolveSessionID(ctx, item.ItemID)
		items = append(items, item)
	}
	return items, nil
}

// resolveSessionID loads the back-reference; a missing session is the normal
// pre-open state, not an error.
func (r *Repository) resolveSessionID(ctx context.Context, itemID string) string {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Select("id").
		Where("agenda_item_id = ?", strings.TrimSpace(itemID)).
		First(&row).
		Error
	if err != nil {
		return ""
	}
	return row.ID
}

// CreateSession relies on the unique index on agenda_item_id to make the
// one-session-per-item rule atomic with the insert.
func (r *Repository) CreateSession(ctx context.Context, session entities.VotingSession) error {
	row := sessionModelFromEntity(session)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrSessionAlreadyOpen
		}
		return r.logError("voting_repo_create_session_failed", err,
			"session_id", strings.TrimSpace(session.SessionID),
			"item_id", strings.TrimSpace(session.AgendaItemID),
		)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingSession{}, domainerrors.ErrSessionNotFound
		}
		return entities.VotingSession{}, r.logError("voting_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.VotingSession, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.SessionStatusOpen)).
		Where("closes_at <= ?", now.UTC()).
		Order("closes_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_expired_sessions_failed", err)
	}
	items := make([]entities.VotingSession, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// CloseSession is the conditional status write: the version predicate makes
// it a compare-and-swap, so concurrent closers cannot overwrite each other.
func (r *Repository) CloseSession(ctx context.Context, sessionID string, version int64, closedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", strings.TrimSpace(sessionID)).
		Where("version = ?", version).
		Updates(map[string]any{
			"status":     string(entities.SessionStatusClosed),
			"version":    version + 1,
			"updated_at": closedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_close_session_failed", result.Error,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVersionConflict
	}
	return nil
}

// InsertVote leans on the (session_id, voter_id) unique index: when two
// submissions for the same voter race past the pre-check, exactly one insert
// lands and the other surfaces here as ErrDuplicateVote.
func (r *Repository) InsertVote(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateVote
		}
		return r.logError("voting_repo_insert_vote_failed", err,
			"vote_id", strings.TrimSpace(vote.VoteID),
			"session_id", strings.TrimSpace(vote.SessionID),
		)
	}
	return nil
}

func (r *Repository) HasVote(ctx context.Context, sessionID string, voterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("voting_repo_has_vote_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return count > 0, nil
}

func (r *Repository) CountVotes(ctx context.Context, sessionID string) (int64, int64, int64, error) {
	type countRow struct {
		Choice string
		Count  int64
	}
	var rows []countRow
	err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Select("choice, COUNT(*) AS count").
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Group("choice").
		Scan(&rows).
		Error
	if err != nil {
		return 0, 0, 0, r.logError("voting_repo_count_votes_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	var total, yes, no int64
	for _, row := range rows {
		total += row.Count
		switch entities.VoteChoice(row.Choice) {
		case entities.VoteChoiceYes:
			yes += row.Count
		case entities.VoteChoiceNo:
			no += row.Count
		}
	}
	return total, yes, no, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("voting_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVersionConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-session",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
}

type agendaItemModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Title       string    `gorm:"column:title"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (agendaItemModel) TableName() string {
	return "agenda_items"
}

func agendaItemModelFromEntity(item entities.AgendaItem) agendaItemModel {
	row := agendaItemModel{
		ID:          strings.TrimSpace(item.ItemID),
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		CreatedAt:   item.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m agendaItemModel) toEntity() entities.AgendaItem {
	return entities.AgendaItem{
		ItemID:      m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type sessionModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	AgendaItemID    string    `gorm:"column:agenda_item_id;uniqueIndex:uk_session_agenda_item"`
	OpenedAt        time.Time `gorm:"column:opened_at"`
	ClosesAt        time.Time `gorm:"column:closes_at"`
	DurationSeconds int       `gorm:"column:duration_seconds"`
	Status          string    `gorm:"column:status"`
	Version         int64     `gorm:"column:version"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string {
	return "voting_sessions"
}

func sessionModelFromEntity(session entities.VotingSession) sessionModel {
	return sessionModel{
		ID:              strings.TrimSpace(session.SessionID),
		AgendaItemID:    strings.TrimSpace(session.AgendaItemID),
		OpenedAt:        session.OpenedAt.UTC(),
		ClosesAt:        session.ClosesAt.UTC(),
		DurationSeconds: session.DurationSeconds,
		Status:          string(session.Status),
		Version:         session.Version,
		UpdatedAt:       session.OpenedAt.UTC(),
	}
}

func (m sessionModel) toEntity() entities.VotingSession {
	return entities.VotingSession{
		SessionID:       m.ID,
		AgendaItemID:    m.AgendaItemID,
		OpenedAt:        m.OpenedAt.UTC(),
		ClosesAt:        m.ClosesAt.UTC(),
		DurationSeconds: m.DurationSeconds,
		Status:          entities.SessionStatus(m.Status),
		Version:         m.Version,
	}
}

type voteModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	SessionID  string    `gorm:"column:session_id;uniqueIndex:uk_vote_session_voter"`
	VoterID    string    `gorm:"column:voter_id;uniqueIndex:uk_vote_session_voter"`
	Choice     string    `gorm:"column:choice"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:         strings.TrimSpace(vote.VoteID),
		SessionID:  strings.TrimSpace(vote.SessionID),
		VoterID:    strings.TrimSpace(vote.VoterID),
		Choice:     string(vote.Choice),
		RecordedAt: vote.RecordedAt.UTC(),
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	return row
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.AgendaRepository = (*Repository)(nil)
var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
