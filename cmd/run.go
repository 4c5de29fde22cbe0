package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Devprenuer/ai-tutor/internal/config"
	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/logging"
	"github.com/Devprenuer/ai-tutor/internal/store"
	"github.com/Devprenuer/ai-tutor/internal/views"
)

// runtime is what every command that touches the database needs.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	trackers *views.Trackers
}

// openRuntime loads config, builds the logger and opens the store. The
// --db flag wins over config and TUTOR_DB; a sqlite DSN left empty falls
// back to the XDG data path.
func openRuntime(cmd *cobra.Command) (*runtime, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
		cfg.Database.DSN = dsn
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			cfg.Database.Driver = "postgres"
		}
	}
	if cfg.Database.Driver == "sqlite" {
		if cfg.Database.DSN == "" {
			if cfg.Database.DSN, err = store.DefaultDBPath(); err != nil {
				return nil, fmt.Errorf("resolve DB path: %w", err)
			}
		} else if cfg.Database.DSN != ":memory:" {
			if err := store.EnsureDir(cfg.Database.DSN); err != nil {
				return nil, fmt.Errorf("resolve DB path: %w", err)
			}
		}
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	tr, err := views.NewTrackers(st.DB())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build view trackers: %w", err)
	}

	return &runtime{cfg: cfg, log: log, store: st, trackers: tr}, nil
}

// provider builds the configured chat provider with auditing, metrics,
// retries and a timeout.
func (r *runtime) provider(cmd *cobra.Command, reg prometheus.Registerer) (llm.Provider, error) {
	if err := r.cfg.LLM.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Set llm.provider and its api_key, or export OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or OPENROUTER_API_KEY.")
		return nil, err
	}
	var metrics *llm.Metrics
	if reg != nil {
		metrics = llm.NewMetrics(reg)
	}
	return llm.NewProvider(cmd.Context(), r.cfg.LLM, llm.Deps{
		Events:  r.store.LLMEventRepo(),
		Log:     r.log,
		Metrics: metrics,
	})
}

func (r *runtime) Close() {
	_ = r.store.Close()
	_ = r.log.Sync()
}
