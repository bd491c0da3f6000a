// Package studyflow wires the blackboard, the autonomous agents, the
// request orchestrator and the HTTP surface into one runnable application.
package studyflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/studyflow-ai/studyflow/agent"
	"github.com/studyflow-ai/studyflow/agents"
	"github.com/studyflow-ai/studyflow/blackboard"
	"github.com/studyflow-ai/studyflow/internal/llm/provider"
	"github.com/studyflow-ai/studyflow/internal/orchestration"
	"github.com/studyflow-ai/studyflow/internal/study"
	"github.com/studyflow-ai/studyflow/pkg/config"
	"github.com/studyflow-ai/studyflow/pkg/observability"
	"github.com/studyflow-ai/studyflow/pkg/vectorstore"
)

// App is the assembled study-planning system.
type App struct {
	cfg          *config.Config
	board        *blackboard.Board
	orchestrator *orchestration.Orchestrator
	runners      []*agent.Runner
	server       *observability.Server
	cron         *cron.Cron
	store        blackboard.ContextStore
}

// New assembles the application from configuration. Nothing starts running
// until Run is called.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	observability.InitMetrics()
	checker := observability.InitHealthChecker()
	checker.RegisterCheck(observability.PingCheck())

	var boardOpts []blackboard.Option
	var store blackboard.ContextStore
	if cfg.Redis.Enabled {
		rs, err := blackboard.NewRedisContextStore(ctx, blackboard.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect context store: %w", err)
		}
		store = rs
		boardOpts = append(boardOpts, blackboard.WithContextStore(rs))
	}

	board := blackboard.New(boardOpts...)
	if err := board.RestoreShared(ctx); err != nil {
		log.Printf("studyflow: restore shared context: %v", err)
	}

	p, err := provider.New(cfg.Provider, map[string]any{
		"api_key": cfg.OpenAIKey,
		"model":   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	instrumented := provider.WithInstrumentation(p, cfg.RateLimitRPS, cfg.RateLimitBurst)

	memStore, err := vectorstore.NewMemoryStore(vectorstore.EmbeddingDims, cfg.MaxDocuments)
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	retriever := vectorstore.NewRetriever(memStore)

	orch := orchestration.New(board, instrumented, retriever,
		orchestration.WithCompletionDefaults(cfg.Temperature, cfg.MaxTokens))

	server := observability.NewServer(cfg.HTTPPort)
	for pattern, handler := range orch.Routes() {
		server.Handle(pattern, handler)
	}

	var runners []*agent.Runner
	if cfg.Agents.ProgressAnalyzer {
		runners = append(runners, agent.NewRunner(agents.NewProgressAnalyzer(board), board))
	}
	if cfg.Agents.TaskScheduler {
		runners = append(runners, agent.NewRunner(agents.NewTaskScheduler(board), board))
	}
	if cfg.Agents.BehaviorCoach {
		runners = append(runners, agent.NewRunner(agents.NewBehaviorCoach(board), board))
	}

	app := &App{
		cfg:          cfg,
		board:        board,
		orchestrator: orch,
		runners:      runners,
		server:       server,
		cron:         cron.New(),
		store:        store,
	}

	// Hourly sweep over the current task list. Approaching deadlines become
	// events, which the reaction table and the scheduler's event gate both
	// pick up without waiting out the scheduler's cadence.
	if _, err := app.cron.AddFunc("@hourly", app.sweepDeadlines); err != nil {
		return nil, fmt.Errorf("schedule deadline sweep: %w", err)
	}

	return app, nil
}

// Board exposes the shared blackboard, mainly for tests and tooling.
func (a *App) Board() *blackboard.Board { return a.board }

// Orchestrator exposes the request handlers.
func (a *App) Orchestrator() *orchestration.Orchestrator { return a.orchestrator }

// Run starts the agents, the deadline sweep and the HTTP server, then blocks
// until the context is cancelled or the server fails. Shutdown is graceful:
// agents finish their current iteration and the server drains connections.
func (a *App) Run(ctx context.Context) error {
	for _, r := range a.runners {
		r.Start(ctx)
	}
	a.cron.Start()
	log.Printf("studyflow: %d autonomous agents running, serving on :%d", len(a.runners), a.cfg.HTTPPort)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()
		return nil
	})

	return g.Wait()
}

func (a *App) shutdown() {
	log.Printf("studyflow: shutting down")

	cronCtx := a.cron.Stop()
	<-cronCtx.Done()

	for _, r := range a.runners {
		r.Stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(sctx); err != nil {
		log.Printf("studyflow: server shutdown: %v", err)
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("studyflow: close context store: %v", err)
		}
	}
}

// sweepDeadlines posts deadline_approaching for every task due within the
// alert window. The events route to the task manager via the reaction table.
func (a *App) sweepDeadlines() {
	v, ok := a.board.Shared("current_tasks")
	if !ok {
		return
	}
	tasks := study.TasksFromAny(v)
	if len(tasks) == 0 {
		return
	}

	report := study.CheckUpcomingDeadlines(tasks, time.Now())
	for _, alert := range report.Alerts {
		a.board.PostEvent("deadline_approaching", map[string]any{
			"task":      alert.Task,
			"days_left": alert.DaysLeft,
			"urgency":   alert.Urgency,
		}, "deadline_sweep")
	}
	if report.Count > 0 {
		log.Printf("studyflow: deadline sweep found %d upcoming deadlines", report.Count)
	}
}
