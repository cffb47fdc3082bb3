package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/Jacobbrewer1/ticketbot/pkg/request"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// commandProcessor handles an interaction.
type commandProcessor func(a IApp, r *responder, i *discordgo.InteractionCreate) error

// commandController picks the processor for a slash command, usually by its sub command.
type commandController func(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error)

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(l *slog.Logger, handler Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				l.Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path
			}
		} else {
			path = r.URL.Path
		}

		defer func() {
			// The status code is only known once the handler has run.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		// Recover from any panics that occur in the handler. This runs before the metrics are recorded.
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				request.WriteMessage(l, cw, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			}
		}()

		handler(cw, r)
	}
}

// interactionHandler routes slash commands to their controllers and button presses to their processors.
func interactionHandler(
	a IApp,
	controllers map[string]commandController,
	buttons map[string]commandProcessor,
) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		var (
			name      string
			processor commandProcessor
			err       error
		)

		r := newResponder(s, i.Interaction)

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			name = i.ApplicationCommandData().Name
			controller, ok := controllers[name]
			if !ok {
				a.Log().Error("No controller found for command", slog.String("command", name))
				break
			}
			processor, err = controller(a, i)
		case discordgo.InteractionMessageComponent:
			name = i.MessageComponentData().CustomID
			p, ok := buttons[name]
			if !ok {
				a.Log().Error("No processor found for component", slog.String("component", name))
				break
			}
			processor = p
		default:
			return
		}

		l := a.Log().With(
			slog.String("interaction", name),
			slog.String(logging.KeyGuildID, i.GuildID),
			slog.String(logging.KeyChannelID, i.ChannelID),
		)
		l.Debug("Handling interaction")

		t := prometheus.NewTimer(monitoring.DiscordCommandDuration.WithLabelValues(name))
		defer t.ObserveDuration()

		defer func() {
			if rec := recover(); rec != nil {
				l.Error("Panic handling interaction",
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				monitoring.TotalInteractions.WithLabelValues(name, "panic").Inc()
				if err := respondError(r); err != nil {
					l.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		if err == nil && processor == nil {
			err = fmt.Errorf("unhandled interaction %s", name)
		}
		if err == nil {
			err = processor(a, r, i)
		}

		if err != nil {
			l.Error("Error processing interaction", slog.String(logging.KeyError, err.Error()))
			monitoring.TotalInteractions.WithLabelValues(name, "error").Inc()

			if err := respondError(r); err != nil {
				l.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			}
			return
		}
		monitoring.TotalInteractions.WithLabelValues(name, "ok").Inc()
	}
}
