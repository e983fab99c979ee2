package votingsession

import (
	"log/slog"
	"time"

	"plenary/contexts/governance/voting-session/adapters/eligibility"
	httpadapter "plenary/contexts/governance/voting-session/adapters/http"
	"plenary/contexts/governance/voting-session/adapters/memory"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/application/queries"
	"plenary/contexts/governance/voting-session/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Agenda          ports.AgendaRepository
	Sessions        ports.SessionRepository
	Votes           ports.VoteRepository
	Eligibility     ports.EligibilityChecker
	Tallies         ports.TallyCache
	Outbox          ports.OutboxWriter
	Clock           ports.Clock
	IDGen           ports.IDGenerator
	DefaultDuration time.Duration
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	agendaUseCase := commands.AgendaUseCase{
		Agenda: deps.Agenda,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	sessionUseCase := commands.SessionUseCase{
		Agenda:          deps.Agenda,
		Sessions:        deps.Sessions,
		Clock:           deps.Clock,
		IDGen:           deps.IDGen,
		DefaultDuration: deps.DefaultDuration,
		Logger:          deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Sessions:    deps.Sessions,
		Votes:       deps.Votes,
		Eligibility: deps.Eligibility,
		Tallies:     deps.Tallies,
		Outbox:      deps.Outbox,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Agenda:   deps.Agenda,
		Sessions: deps.Sessions,
		Votes:    deps.Votes,
		Cache:    deps.Tallies,
	}
	return Module{
		Handler: httpadapter.Handler{
			Agenda:   agendaUseCase,
			Sessions: sessionUseCase,
			Votes:    voteUseCase,
			Tallies:  tallyUseCase,
		},
	}
}

// NewInMemoryModule wires the module entirely on the memory store with a
// permissive eligibility checker. Used by tests and local runs.
func NewInMemoryModule(checker ports.EligibilityChecker, logger *slog.Logger) Module {
	if checker == nil {
		checker = eligibility.StaticChecker{Allow: true}
	}
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Agenda:          store,
		Sessions:        store,
		Votes:           store,
		Eligibility:     checker,
		Tallies:         store,
		Outbox:          store,
		Clock:           store,
		IDGen:           store,
		DefaultDuration: 60 * time.Second,
		Logger:          logger,
	})
	module.Store = store
	return module
}
