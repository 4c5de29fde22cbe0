package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Devprenuer/ai-tutor/internal/answers"
	"github.com/Devprenuer/ai-tutor/internal/api"
	"github.com/Devprenuer/ai-tutor/internal/hints"
	"github.com/Devprenuer/ai-tutor/internal/lessons"
	"github.com/Devprenuer/ai-tutor/internal/questions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.cfg.Server.Addr = addr
		}
		if rt.cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required (set TUTOR_JWT_SECRET)")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		provider, err := rt.provider(cmd, reg)
		if err != nil {
			return fmt.Errorf("build LLM provider: %w", err)
		}

		db := rt.store.DB()
		srv := api.New(api.Options{
			Addr:            rt.cfg.Server.Addr,
			Mode:            rt.cfg.Server.Mode,
			CORSOrigins:     rt.cfg.Server.CORSOrigins,
			JWTSecret:       rt.cfg.Auth.JWTSecret,
			RateLimit:       rt.cfg.Server.RateLimit,
			RateBurst:       rt.cfg.Server.RateBurst,
			ShutdownTimeout: rt.cfg.Server.ShutdownTimeout,
		}, api.Deps{
			DB:        db,
			Questions: questions.NewService(db, rt.trackers, provider, rt.cfg.Questions, rt.log),
			Hints:     hints.NewService(db, rt.trackers, provider, rt.cfg.Hints, rt.log),
			Lessons:   lessons.NewService(db, rt.trackers, provider, rt.cfg.Lessons, rt.log),
			Answers:   answers.NewService(db, rt.trackers, rt.log),
			Log:       rt.log,
			Registry:  reg,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
