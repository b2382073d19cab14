package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/internal/handler"
	"github.com/zhouzirui/snakeaid/backend/internal/service/ai"
	"github.com/zhouzirui/snakeaid/backend/internal/service/chat"
	"github.com/zhouzirui/snakeaid/backend/internal/service/relay"
	"github.com/zhouzirui/snakeaid/backend/internal/service/responder"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var withResponder bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget API and relay messages to the responder",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			servers := []*http.Server{newHTTPServer(cfg.Server.Addr, handler.NewRouter(newChatService(cfg.Relay)))}
			if withResponder {
				responderRouter, err := newResponderRouter(ctx, cfg.Responder)
				if err != nil {
					return err
				}
				servers = append(servers, newHTTPServer(cfg.Server.ResponderAddr, responderRouter))
			}

			log.Info().Str("send", cfg.Relay.SendURL).Str("reset", cfg.Relay.ResetURL).Msg("relaying to responder")
			return runServers(ctx, servers...)
		},
	}

	cmd.Flags().BoolVar(&withResponder, "with-responder", false, "also run the reference responder in this process")
	return cmd
}

func newResponderCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "responder",
		Short: "Serve the reference responder (/sms, /reset)",
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := newResponderRouter(cmd.Context(), opts.cfg.Responder)
			if err != nil {
				return err
			}
			return runServers(cmd.Context(), newHTTPServer(opts.cfg.Server.ResponderAddr, router))
		},
	}
}

func newChatService(cfg config.RelayConfig) *chat.Service {
	client := relay.NewClient(relay.Config{
		SendURL:  cfg.SendURL,
		ResetURL: cfg.ResetURL,
		SenderID: cfg.SenderID,
		Timeout:  cfg.Timeout,
	})
	return chat.NewService(client)
}

func newResponderRouter(ctx context.Context, cfg config.ResponderConfig) (http.Handler, error) {
	generator, err := ai.NewGenerator(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize responder model")
	}
	if generator == nil {
		log.Warn().Msg("no model credentials configured, responder will answer with the fixed first aid text")
	} else {
		log.Info().Str("provider", generator.Name()).Msg("responder model initialized")
	}

	store := responder.NewSessionStore(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.SessionTTL)
	svc := responder.NewService(generator, store, responder.Options{
		HistoryLimit:  cfg.HistoryLimit,
		TriageEnabled: cfg.TriageEnabled,
	})
	return handler.NewResponderRouter(svc), nil
}
