//go:build wireinject
// +build wireinject

package main

import (
	"github.com/Jacobbrewer1/ticketbot/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/google/wire"
	"github.com/gorilla/mux"
)

func InitializeApp() (*App, func(), error) {
	wire.Build(
		wire.Value(logging.Name(config.AppName)),
		logging.NewConfig,
		logging.CommonLogger,
		config.Load,
		mux.NewRouter,
		provideSession,
		provideStore,
		providePublisher,
		provideService,
		NewApp,
	)
	return new(App), nil, nil
}
