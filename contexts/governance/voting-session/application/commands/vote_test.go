package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/adapters/eligibility"
	"plenary/contexts/governance/voting-session/adapters/memory"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

const validVoter = "52998224725"

func seedOpenSession(t *testing.T, store *memory.Store, now time.Time) entities.VotingSession {
	t.Helper()
	seedAgendaItem(t, store, "item-1")
	session := entities.VotingSession{
		SessionID:       "session-1",
		AgendaItemID:    "item-1",
		OpenedAt:        now,
		ClosesAt:        now.Add(60 * time.Second),
		DurationSeconds: 60,
		Status:          entities.SessionStatusOpen,
		Version:         1,
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}
	return session
}

func TestSubmitVoteRecordsNormalizedVote(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Tallies:     store,
		Outbox:      store,
		Clock:       fixedClock{now: now.Add(5 * time.Second)},
		IDGen:       store,
	}

	vote, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   "529.982.247-25",
		Choice:    entities.VoteChoiceYes,
	})
	if err != nil {
		t.Fatalf("submit vote failed: %v", err)
	}
	if vote.VoterID != validVoter {
		t.Fatalf("expected normalized voter id, got %q", vote.VoterID)
	}
	if !vote.RecordedAt.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("unexpected recorded_at: %s", vote.RecordedAt)
	}

	total, yes, no, err := store.CountVotes(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if total != 1 || yes != 1 || no != 0 {
		t.Fatalf("unexpected ledger counts: total=%d yes=%d no=%d", total, yes, no)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "vote.recorded" {
		t.Fatalf("expected one vote.recorded outbox row, got %+v", pending)
	}
}

func TestSubmitVoteRejectsInvalidChoice(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}

	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   validVoter,
		Choice:    entities.VoteChoice("maybe"),
	})
	if !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected invalid vote input, got %v", err)
	}
}

func TestSubmitVoteRejectsMalformedVoter(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}

	for _, voter := range []string{"123", "11111111111", "12345678911"} {
		_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
			SessionID: "session-1",
			VoterID:   voter,
			Choice:    entities.VoteChoiceYes,
		})
		if !errors.Is(err, domainerrors.ErrInvalidVoterID) {
			t.Fatalf("voter %q: expected invalid voter id, got %v", voter, err)
		}
	}
}

// A logically expired session rejects votes even before the sweeper has
// transitioned its status.
func TestSubmitVoteRejectsExpiredWindow(t *testing.T) {
	store := memory.NewStore()
	openedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedOpenSession(t, store, openedAt)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Clock:       fixedClock{now: openedAt.Add(61 * time.Second)},
		IDGen:       store,
	}

	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   validVoter,
		Choice:    entities.VoteChoiceYes,
	})
	if !errors.Is(err, domainerrors.ErrSessionClosed) {
		t.Fatalf("expected session closed, got %v", err)
	}

	total, _, _, err := store.CountVotes(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected empty ledger, got %d votes", total)
	}
}

func TestSubmitVoteRejectsIneligibleVoter(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)

	for _, checker := range []eligibility.StaticChecker{
		{Allow: false},
		{Err: errors.New("eligibility upstream unavailable")},
	} {
		uc := commands.VoteUseCase{
			Sessions:    store,
			Votes:       store,
			Eligibility: checker,
			Clock:       fixedClock{now: now},
			IDGen:       store,
		}
		_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
			SessionID: "session-1",
			VoterID:   validVoter,
			Choice:    entities.VoteChoiceNo,
		})
		if !errors.Is(err, domainerrors.ErrVoterNotEligible) {
			t.Fatalf("expected voter not eligible, got %v", err)
		}
	}
}

func TestSubmitVoteRejectsDuplicate(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Tallies:     store,
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}

	if _, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   validVoter,
		Choice:    entities.VoteChoiceYes,
	}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}

	// A changed choice does not help; identity is (session, voter).
	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   "529.982.247-25",
		Choice:    entities.VoteChoiceNo,
	})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}

	total, yes, _, err := store.CountVotes(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if total != 1 || yes != 1 {
		t.Fatalf("expected single yes vote, got total=%d yes=%d", total, yes)
	}
}

func TestSubmitVoteConcurrentSameVoter(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Tallies:     store,
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
				SessionID: "session-1",
				VoterID:   validVoter,
				Choice:    entities.VoteChoiceYes,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, duplicates int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domainerrors.ErrDuplicateVote):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || duplicates != attempts-1 {
		t.Fatalf("expected 1 accepted and %d duplicates, got %d and %d", attempts-1, accepted, duplicates)
	}

	total, _, _, err := store.CountVotes(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("count votes failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected a single ledger entry, got %d", total)
	}
}

func TestSubmitVoteUnknownSession(t *testing.T) {
	store := memory.NewStore()
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		IDGen:       store,
	}

	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "missing",
		VoterID:   validVoter,
		Choice:    entities.VoteChoiceYes,
	})
	if !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

type failingOutbox struct{}

func (failingOutbox) AppendOutbox(context.Context, ports.EventEnvelope) error {
	return errors.New("outbox unavailable")
}

// A failed event append after the ledger insert committed must not fail the
// submission; retrying would only yield a duplicate for a recorded vote.
func TestSubmitVoteSurvivesOutboxFailure(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Tallies:     store,
		Outbox:      failingOutbox{},
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}

	vote, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   validVoter,
		Choice:    entities.VoteChoiceYes,
	})
	if err != nil {
		t.Fatalf("submission must succeed once the ledger insert committed, got %v", err)
	}
	if vote.VoteID == "" {
		t.Fatalf("expected persisted vote in response")
	}

	exists, err := store.HasVote(context.Background(), "session-1", validVoter)
	if err != nil {
		t.Fatalf("has vote failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected vote to be recorded despite event loss")
	}
}

func TestSubmitVoteInvalidatesTallyCache(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	seedOpenSession(t, store, now)
	store.Put("session-1", entities.TallyResult{SessionID: "session-1"})

	uc := commands.VoteUseCase{
		Sessions:    store,
		Votes:       store,
		Eligibility: eligibility.StaticChecker{Allow: true},
		Tallies:     store,
		Clock:       fixedClock{now: now},
		IDGen:       store,
	}
	if _, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		SessionID: "session-1",
		VoterID:   validVoter,
		Choice:    entities.VoteChoiceYes,
	}); err != nil {
		t.Fatalf("submit vote failed: %v", err)
	}

	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected tally cache entry to be invalidated")
	}
}
