package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/dyluth/quill/internal/config"
	"github.com/dyluth/quill/internal/docstore"
	"github.com/dyluth/quill/internal/engine"
	"github.com/dyluth/quill/internal/llm"
	"github.com/dyluth/quill/internal/logging"
	"github.com/dyluth/quill/internal/orchestrator"
	"github.com/dyluth/quill/internal/persist"
	"github.com/dyluth/quill/internal/printer"
	"github.com/dyluth/quill/pkg/blackboard"
)

// workspaceOptions are the flags shared by commands that run the workflow.
type workspaceOptions struct {
	configPath string
	dryRun     bool
	html       bool
}

// workspace is everything a generation command needs, wired from quill.yml.
type workspace struct {
	cfg          *config.QuillConfig
	store        *docstore.Store
	orchestrator *orchestrator.Orchestrator
	closers      []io.Closer
}

// loadConfig reads quill.yml and turns a missing file into a friendly error.
func loadConfig(path string) (*config.QuillConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, printer.Error(
				fmt.Sprintf("%s not found", path),
				"No quill configuration found in this directory.",
				[]string{"Initialize a workspace first:\n  quill init", "Or point at a config file:\n  quill --config path/to/quill.yml"},
			)
		}
		return nil, printer.Error(
			"invalid configuration",
			fmt.Sprintf("Failed to load %s: %v", path, err),
			[]string{"Check the file against the template written by 'quill init'"},
		)
	}
	return cfg, nil
}

// openWorkspace loads the configuration and builds the orchestrator with
// every configured sink. The caller must Close the workspace.
func openWorkspace(ctx context.Context, opts workspaceOptions) (*workspace, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dryRun {
		cfg.API.Provider = config.ProviderMock
	}
	if opts.html {
		cfg.Output.HTML = true
	}

	ws := &workspace{cfg: cfg, store: docstore.New(cfg.Workflow.SourceDir)}

	logSink, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, printer.Error(
			"failed to open log file",
			err.Error(),
			[]string{fmt.Sprintf("Check that %s is writable", cfg.Logging.File)},
		)
	}
	ws.closers = append(ws.closers, logSink)

	client, err := llm.New(ctx, cfg.API)
	if err != nil {
		ws.Close()
		return nil, printer.Error(
			fmt.Sprintf("failed to create %s client", cfg.API.Provider),
			err.Error(),
			[]string{
				"Set OPENAI_API_KEY or GOOGLE_CLOUD_PROJECT in .env",
				"Try the pipeline without an LLM:\n  quill forage --dry-run",
			},
		)
	}
	if c, ok := client.(io.Closer); ok {
		ws.closers = append(ws.closers, c)
	}
	log.Printf("[CLI] Using %s provider (model %s)", cfg.API.Provider, client.Model())

	factory := engine.NewFactory(client, engine.AgentConfig{
		Temperature:      *cfg.API.Temperature,
		MaxOutputTokens:  cfg.API.MaxOutputTokens,
		QualityThreshold: cfg.Workflow.QualityThreshold,
	})

	orchOpts := []orchestrator.Option{
		orchestrator.WithExamples(docstore.NewExampleStore(cfg.Workflow.ExamplesDir)),
	}

	sinks := persist.MultiSink{persist.NewFileSink(cfg.Workflow.OutputDir, persist.Options{HTML: cfg.Output.HTML})}

	if r := cfg.Output.Redis; r != nil && r.URL != "" {
		bb, err := blackboard.NewClientFromURL(r.URL, r.Instance)
		if err != nil {
			ws.Close()
			return nil, printer.Error(
				"invalid Redis URL",
				err.Error(),
				[]string{"Check output.redis.url in quill.yml"},
			)
		}
		ws.closers = append(ws.closers, bb)
		redisSink := persist.NewRedisSink(bb)
		sinks = append(sinks, redisSink)
		orchOpts = append(orchOpts, orchestrator.WithObserver(redisSink), orchestrator.WithInstanceName(r.Instance))
	}

	if g := cfg.Output.GCS; g != nil && g.Bucket != "" {
		gcsSink, err := persist.NewGCSSink(ctx, g.Bucket, g.Prefix, persist.Options{HTML: cfg.Output.HTML})
		if err != nil {
			ws.Close()
			return nil, printer.Error(
				"failed to create Cloud Storage client",
				err.Error(),
				[]string{"Check application default credentials:\n  gcloud auth application-default login"},
			)
		}
		ws.closers = append(ws.closers, gcsSink)
		sinks = append(sinks, gcsSink)
	}

	orchOpts = append(orchOpts, orchestrator.WithSink(sinks))
	ws.orchestrator = orchestrator.NewOrchestrator(ws.store, factory, cfg, orchOpts...)
	return ws, nil
}

// Close releases clients in reverse order. The log sink goes last so the
// others can still log while shutting down.
func (w *workspace) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil {
			log.Printf("[CLI] Warning: close failed: %v", err)
		}
	}
	w.closers = nil
}

// listTopics reads the topic folders, reporting a missing source dir clearly.
func (w *workspace) listTopics() ([]string, error) {
	topics, err := w.store.ListTopics()
	if err != nil {
		return nil, printer.Error(
			"failed to list topics",
			err.Error(),
			[]string{fmt.Sprintf("Create a topic folder under %s/ containing source documents", w.cfg.Workflow.SourceDir)},
		)
	}
	return topics, nil
}

// connectBlackboard opens the Redis blackboard named in quill.yml, or the
// override URL, and checks it answers.
func connectBlackboard(ctx context.Context, cfgPath, urlOverride, instanceOverride string) (*blackboard.Client, error) {
	url, instance := urlOverride, instanceOverride
	if url == "" {
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		if cfg.Output.Redis != nil {
			url = cfg.Output.Redis.URL
			if instance == "" {
				instance = cfg.Output.Redis.Instance
			}
		}
	}
	if url == "" {
		return nil, printer.Error(
			"no blackboard configured",
			"Run history lives in Redis, but no Redis URL is configured.",
			[]string{
				"Add it to quill.yml:\n  output:\n    redis:\n      url: redis://localhost:6379/0",
				"Or pass it directly:\n  --redis-url redis://localhost:6379/0",
			},
		)
	}
	if instance == "" {
		instance = config.DefaultRedisInstance
	}

	client, err := blackboard.NewClientFromURL(url, instance)
	if err != nil {
		return nil, printer.Error("invalid Redis URL", err.Error(), nil)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.Error(
			"blackboard unreachable",
			fmt.Sprintf("Failed to connect to %s: %v", url, err),
			[]string{"Check that Redis is running and the URL is correct"},
		)
	}
	return client, nil
}
