package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/moodlens/internal/companion"
	"github.com/thebtf/moodlens/internal/config"
	"github.com/thebtf/moodlens/internal/watcher"
	"github.com/thebtf/moodlens/internal/worker"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal, insights and companion chat over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cmd.Flags().Changed("port") {
				cfg.WorkerPort = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", config.DefaultWorkerPort, "Port to listen on")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeDB, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	responder := loadResponder(cfg.RulesPath)
	stopWatch := watchRules(cfg.RulesPath, responder)
	defer stopWatch()

	svc := worker.NewService(Version, cfg, store, responder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(svc.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down worker")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), worker.ShutdownTimeout)
		defer cancel()
		return svc.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// loadResponder reads the rule table, falling back to the built-in one.
func loadResponder(path string) *companion.Responder {
	rules, err := companion.LoadRules(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load rules, using built-in table")
		rules = companion.DefaultRules()
	}
	return companion.NewResponder(rules, nil)
}

// watchRules reloads the responder whenever the rules file changes.
func watchRules(path string, responder *companion.Responder) func() {
	noop := func() {}
	if path == "" {
		return noop
	}

	w, err := watcher.New(path, func() {
		if err := responder.Reload(path); err == nil {
			log.Info().Str("path", path).Strs("rules", responder.Rules().Names()).Msg("Rules reloaded")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create rules watcher")
		return noop
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Rules file will not be watched")
		_ = w.Stop()
		return noop
	}
	return func() {
		if err := w.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop rules watcher")
		}
	}
}
