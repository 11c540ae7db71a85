package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/db"
	"github.com/jonathan/hiring-pipeline/internal/llm"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/memstore"
	"github.com/jonathan/hiring-pipeline/internal/oracle"
	"github.com/jonathan/hiring-pipeline/internal/questions"
	"github.com/jonathan/hiring-pipeline/internal/server"
	"github.com/jonathan/hiring-pipeline/internal/workflow"
)

// loadConfig reads the environment, overlays the --config file if given and
// lets the caller apply flag overrides before validation.
func loadConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path != "" {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged := cfg.Merge(fileCfg)
		cfg = &merged
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// credentialStore is a workflow store that can also hand out password hashes.
type credentialStore interface {
	workflow.Store
	server.CredentialStore
}

// app bundles the services every command is built from.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    credentialStore
	db       *db.DB // nil for the memory backend
	llm      llm.Client
	oracle   oracle.Oracle
	bank     *questions.Bank
	workflow *workflow.Service
	accounts *server.AccountService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
	}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		a.logger.Warn("using in-memory store; data is lost on exit")
		a.store = memstore.New()
	default:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		applied, err := database.Migrate(ctx)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if len(applied) > 0 {
			a.logger.Info("applied migrations", "versions", applied)
		}
		a.db = database
		a.store = database
	}

	bank, err := loadBank(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bank = bank

	a.oracle, a.llm, err = newOracle(ctx, cfg, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	wf, err := workflow.New(workflow.Config{
		Store:         a.store,
		Oracle:        a.oracle,
		Questions:     a.bank,
		Logger:        a.logger,
		QuestionCount: cfg.QuestionCount,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.workflow = wf

	pwCfg, err := config.NewPasswordConfig()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.accounts = server.NewAccountService(wf, a.store, pwCfg)
	return a, nil
}

// health reports store reachability for GET /health.
func (a *app) health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Ping(ctx)
}

// Close releases the database pool and model client.
func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// loadBank returns the configured fallback question bank, or the embedded one.
func loadBank(cfg *config.Config) (*questions.Bank, error) {
	if cfg.QuestionBankPath == "" {
		return questions.Default(), nil
	}
	return questions.Load(cfg.QuestionBankPath)
}

// newOracle builds the Gemini-backed oracle, or a disabled one when no API key
// is configured. The returned client is nil in the disabled case.
func newOracle(ctx context.Context, cfg *config.Config, logger *logging.Logger) (oracle.Oracle, llm.Client, error) {
	if !cfg.OracleEnabled() {
		logger.Warn("GEMINI_API_KEY not set; interviews use the fallback question bank")
		return oracle.Disabled{}, nil, nil
	}

	llmCfg := llm.DefaultConfig()
	if cfg.LLMModel != "" {
		llmCfg = llmCfg.WithModel(cfg.LLMModel)
	}
	client, err := llm.NewGeminiClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}
	return oracle.NewLLMOracle(client, time.Duration(cfg.OracleTimeout), logger), client, nil
}
