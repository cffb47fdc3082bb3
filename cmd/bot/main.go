package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
)

func main() {
	a, cleanup, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}

	a.Info("Starting application")
	err = a.Run()
	cleanup()
	if err != nil {
		a.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
