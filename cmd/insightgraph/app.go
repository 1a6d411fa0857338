package main

import (
	"context"
	"fmt"
	"io"

	"github.com/smallnest/insightgraph/agents"
	"github.com/smallnest/insightgraph/config"
	"github.com/smallnest/insightgraph/llms/provider"
	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/rag/docstore"
	"github.com/smallnest/insightgraph/rag/ingest"
	"github.com/smallnest/insightgraph/rag/overview"
	ragstore "github.com/smallnest/insightgraph/rag/store"
	"github.com/smallnest/insightgraph/sandbox"
	"github.com/smallnest/insightgraph/store"
	"github.com/smallnest/insightgraph/store/file"
	"github.com/smallnest/insightgraph/store/memory"
	"github.com/smallnest/insightgraph/store/postgres"
	"github.com/smallnest/insightgraph/store/redis"
	"github.com/smallnest/insightgraph/store/sqlite"
	"github.com/tmc/langchaingo/llms"
)

// app holds the collaborators shared by every action. The index and the
// checkpoint store open on first use so that actions which do not need them
// never connect.
type app struct {
	cfg      *config.Config
	model    llms.Model
	docs     *docstore.Store
	overview *overview.Cache

	index   *ragstore.LangChainVectorStore
	closers []func()
}

func openApp(_ context.Context, cfg *config.Config) (*app, error) {
	llmOpts := provider.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}
	model, err := provider.NewModel(llmOpts)
	if err != nil {
		return nil, err
	}

	docs, err := docstore.New(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	ov, err := overview.New(cfg.OverviewPath, model)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, model: model, docs: docs, overview: ov}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) vectorIndex(ctx context.Context) (*ragstore.LangChainVectorStore, error) {
	if a.index != nil {
		return a.index, nil
	}

	embedder, err := provider.NewEmbedder(provider.Options{
		APIKey:         a.cfg.LLM.APIKey,
		BaseURL:        a.cfg.LLM.BaseURL,
		Model:          a.cfg.LLM.Model,
		EmbeddingModel: a.cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}

	index, err := ragstore.NewPGVectorStore(ctx, a.cfg.IndexDatabaseURL, embedder, a.cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	a.index = index
	a.closers = append(a.closers, index.Close)
	log.Debug("opened index collection %s", a.cfg.Collection)
	return index, nil
}

func (a *app) pipeline(ctx context.Context) (*ingest.Pipeline, error) {
	index, err := a.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ingest.New(a.docs, index, a.overview, a.model,
		ingest.WithConcurrency(a.cfg.Ingest.Concurrency),
		ingest.WithRollbackOnParseFailure(a.cfg.Ingest.RollbackOnParseFailure),
		ingest.WithDebounce(a.cfg.Ingest.Debounce),
	)
}

func (a *app) session(ctx context.Context) (*agents.Session, error) {
	index, err := a.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}

	executor, err := sandbox.NewPythonExecutor(a.cfg.Sandbox.ArtifactDir,
		sandbox.WithInterpreter(a.cfg.Sandbox.Interpreter),
		sandbox.WithTimeout(a.cfg.Sandbox.Timeout),
	)
	if err != nil {
		return nil, err
	}

	workflow, err := agents.NewWorkflow(agents.Config{
		Model:                   a.model,
		Index:                   index,
		Sources:                 a.docs,
		Executor:                executor,
		RecursionLimit:          a.cfg.Agents.RecursionLimit,
		RetrieverMaxIterations:  a.cfg.Agents.RetrieverMaxIterations,
		VisualizerMaxIterations: a.cfg.Agents.VisualizerMaxIterations,
		SearchResults:           a.cfg.Agents.SearchResults,
	})
	if err != nil {
		return nil, err
	}

	checkpoints, closer, err := openCheckpointStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return agents.NewSession(workflow, checkpoints), nil
}

// openCheckpointStore returns the configured checkpoint backend and, when the
// backend holds a connection, a function releasing it.
func openCheckpointStore(ctx context.Context, c *config.Config) (store.CheckpointStore, func(), error) {
	cfg := c.Checkpoint
	switch cfg.Backend {
	case "memory":
		return memory.NewMemoryCheckpointStore(), nil, nil

	case "", "file":
		s, err := file.NewFileCheckpointStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil

	case "postgres":
		s, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{
			ConnString: c.CheckpointPostgresURL(),
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "redis":
		s := redis.NewRedisCheckpointStore(redis.RedisOptions{Addr: cfg.RedisAddr})
		return s, closeLogged("redis", s), nil

	case "sqlite":
		s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{Path: cfg.SqlitePath})
		if err != nil {
			return nil, nil, err
		}
		return s, closeLogged("sqlite", s), nil
	}
	return nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
}

func closeLogged(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("close %s checkpoint store: %v", name, err)
		}
	}
}
