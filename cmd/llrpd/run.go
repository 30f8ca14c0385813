package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/llrpd/internal/auth"
	"github.com/danmuck/llrpd/internal/config"
	"github.com/danmuck/llrpd/internal/logging"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reader"
	"github.com/danmuck/llrpd/internal/server"
	"github.com/danmuck/llrpd/internal/sink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the configured readers and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel == "" {
				logging.SetLevel(cfg.LogLevel)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg)
		},
	}
}

type pipeline struct {
	fanout  *sink.Fanout
	hub     *sink.Hub
	journal *sink.Journal
}

func buildSinks(ctx context.Context, cfg config.Config) (*pipeline, error) {
	p := &pipeline{}
	var sinks []sink.Sink
	if cfg.Sinks.Log {
		sinks = append(sinks, sink.Log{})
	}
	if cfg.Sinks.Redis.Enabled {
		r, err := sink.NewRedis(ctx, cfg.Sinks.Redis.RedisConfig)
		if err != nil {
			sink.NewFanout(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, r)
	}
	if cfg.Sinks.WebSocket.Enabled {
		p.hub = sink.NewHub(cfg.Sinks.WebSocket.HubConfig)
		sinks = append(sinks, p.hub)
	}
	if cfg.Sinks.Journal.Enabled {
		j, err := sink.OpenJournal(cfg.Sinks.Journal.JournalConfig)
		if err != nil {
			sink.NewFanout(sinks...).Close()
			return nil, err
		}
		p.journal = j
		sinks = append(sinks, j)
	}
	p.fanout = sink.NewFanout(sinks...)
	if p.fanout.Len() == 0 {
		log.Warn().Msg("llrpd no sinks enabled; readings are decoded and dropped")
	}
	return p, nil
}

func runDaemon(ctx context.Context, cfg config.Config) error {
	pipe, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipe.fanout.Close(); err != nil {
			log.Warn().Err(err).Msg("llrpd sink close failed")
		}
	}()

	registry := session.NewRegistry(cfg.Session)
	var opts []reader.Option
	if pipe.hub != nil {
		opts = append(opts, reader.WithEvents(pipe.hub))
	}
	manager, err := reader.NewManager(cfg.Readers, cfg.Transport, registry, pipe.fanout, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		srvOpts := server.Options{
			Name:        cfg.Name,
			Registry:    registry,
			Readers:     manager,
			RecentLimit: cfg.Sinks.Journal.RecentLimit,
			CorsOrigins: cfg.HTTP.CorsOrigins,
		}
		if pipe.journal != nil {
			srvOpts.Recent = pipe.journal
		}
		if pipe.hub != nil {
			srvOpts.Live = pipe.hub
		}
		if cfg.HTTP.Token != "" {
			srvOpts.Auth = auth.StaticToken{Token: cfg.HTTP.Token}
		}
		srv := server.New(srvOpts)
		go func() {
			err := srv.ListenAndServe(ctx, cfg.HTTP.Addr)
			if err != nil {
				// A dead API takes the readers down with it.
				cancel()
			}
			httpErr <- err
		}()
	} else {
		httpErr <- nil
	}

	log.Info().
		Str("name", cfg.Name).
		Int("readers", len(cfg.Readers)).
		Int("sinks", pipe.fanout.Len()).
		Bool("stitch", cfg.Session.Stitch).
		Msg("llrpd started")

	runErr := manager.Run(ctx)
	cancel()
	err = errors.Join(runErr, <-httpErr)
	log.Info().Err(err).Msg("llrpd stopped")
	return err
}
