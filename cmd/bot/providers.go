package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketbot/pkg/discord"
	"github.com/Jacobbrewer1/ticketbot/pkg/events"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
	"golang.org/x/time/rate"
)

const connectTimeout = 15 * time.Second

func provideSession(cfg *config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return s, nil
}

func provideStore(l *slog.Logger, cfg *config.Config) (dataaccess.Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store, err := dataaccess.NewStore(ctx, l, &cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening store: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			l.Error("Error closing store", slog.String(logging.KeyError, err.Error()))
		}
	}
	return store, cleanup, nil
}

func providePublisher(l *slog.Logger, cfg *config.Config) (events.Publisher, func(), error) {
	if cfg.AMQP.URI == "" {
		l.Info("No AMQP URI provided, ticket events will not be published", slog.String("key", config.EnvAmqpUri))
		return events.NewNoop(), func() {}, nil
	}

	pub, err := events.NewAMQPPublisher(l, cfg.AMQP.URI, cfg.AMQP.Exchange)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Error("Error closing event publisher", slog.String(logging.KeyError, err.Error()))
		}
	}
	return pub, cleanup, nil
}

func provideService(
	l *slog.Logger,
	store dataaccess.Store,
	s *discordgo.Session,
	pub events.Publisher,
	cfg *config.Config,
) (*tickets.Service, error) {
	opts, err := cfg.TicketOptions()
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.Tickets.CreateRate), cfg.Tickets.CreateBurst)

	return tickets.NewService(
		l,
		store,
		store,
		discord.NewProvisioner(l, s, limiter),
		discord.NewExporter(s, cfg.Tickets.TranscriptLimit),
		discord.NewNotifier(s),
		discord.NewDirectory(s),
		pub,
		opts,
	), nil
}
