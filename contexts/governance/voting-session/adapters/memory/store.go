package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store implements every repository port in process. It mirrors the
// storage-layer guarantees of the postgres adapter: one session per agenda
// item, one vote per (session, voter), compare-and-swap on session version.
type Store struct {
	mu sync.Mutex

	items    map[string]entities.AgendaItem
	sessions map[string]entities.VotingSession
	// sessionByItem backs the one-session-per-item unique constraint.
	sessionByItem map[string]string
	votes         map[string]entities.Vote
	// voteByIdentity backs the (session, voter) unique constraint.
	voteByIdentity map[string]string
	outbox         map[string]outboxRecord

	tallies map[string]entities.TallyResult
}

func NewStore() *Store {
	return &Store{
		items:          make(map[string]entities.AgendaItem),
		sessions:       make(map[string]entities.VotingSession),
		sessionByItem:  make(map[string]string),
		votes:          make(map[string]entities.Vote),
		voteByIdentity: make(map[string]string),
		outbox:         make(map[string]outboxRecord),
		tallies:        make(map[string]entities.TallyResult),
	}
}

func (s *Store) CreateAgendaItem(_ context.Context, item entities.AgendaItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[strings.TrimSpace(item.ItemID)] = item
	return nil
}

func (s *Store) GetAgendaItem(_ context.Context, itemID string) (entities.AgendaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[strings.TrimSpace(itemID)]
	if !ok {
		return entities.AgendaItem{}, domainerrors.ErrAgendaItemNotFound
	}
	return item, nil
}

func (s *Store) ListAgendaItems(_ context.Context) ([]entities.AgendaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entities.AgendaItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateSession(_ context.Context, session entities.VotingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemID := strings.TrimSpace(session.AgendaItemID)
	if _, ok := s.items[itemID]; !ok {
		return domainerrors.ErrAgendaItemNotFound
	}
	if _, taken := s.sessionByItem[itemID]; taken {
		return domainerrors.ErrSessionAlreadyOpen
	}
	s.sessions[session.SessionID] = session
	s.sessionByItem[itemID] = session.SessionID

	item := s.items[itemID]
	item.SessionID = session.SessionID
	s.items[itemID] = item
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.VotingSession{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) ListExpiredOpenSessions(_ context.Context, now time.Time) ([]entities.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := make([]entities.VotingSession, 0)
	for _, session := range s.sessions {
		if session.Status == entities.SessionStatusOpen && session.Expired(now) {
			expired = append(expired, session)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ClosesAt.Before(expired[j].ClosesAt)
	})
	return expired, nil
}

func (s *Store) CloseSession(_ context.Context, sessionID string, version int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return domainerrors.ErrSessionNotFound
	}
	if session.Version != version {
		return domainerrors.ErrVersionConflict
	}
	session.Status = entities.SessionStatusClosed
	session.Version++
	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) InsertVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteIdentity(vote.SessionID, vote.VoterID)
	if _, taken := s.voteByIdentity[key]; taken {
		return domainerrors.ErrDuplicateVote
	}
	s.votes[vote.VoteID] = vote
	s.voteByIdentity[key] = vote.VoteID
	return nil
}

func (s *Store) HasVote(_ context.Context, sessionID string, voterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.voteByIdentity[voteIdentity(sessionID, voterID)]
	return ok, nil
}

func (s *Store) CountVotes(_ context.Context, sessionID string) (int64, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID = strings.TrimSpace(sessionID)
	var total, yes, no int64
	for _, vote := range s.votes {
		if vote.SessionID != sessionID {
			continue
		}
		total++
		if vote.Choice == entities.VoteChoiceYes {
			yes++
		} else {
			no++
		}
	}
	return total, yes, no, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, ok := s.outbox[outboxID]; ok {
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrVersionConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Get(sessionID string) (entities.TallyResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.tallies[strings.TrimSpace(sessionID)]
	return result, ok
}

func (s *Store) Put(sessionID string, result entities.TallyResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[strings.TrimSpace(sessionID)] = result
}

func (s *Store) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tallies, strings.TrimSpace(sessionID))
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func voteIdentity(sessionID string, voterID string) string {
	return strings.TrimSpace(sessionID) + "|" + strings.TrimSpace(voterID)
}

var _ ports.AgendaRepository = (*Store)(nil)
var _ ports.SessionRepository = (*Store)(nil)
var _ ports.VoteRepository = (*Store)(nil)
var _ ports.TallyCache = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
