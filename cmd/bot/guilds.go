package main

import (
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
)

// guildCommandRegistrar registers the slash commands of a single guild.
type guildCommandRegistrar interface {
	IApp
	registerGuildCommands(guildID string) error
}

// guildJoinedHandler fires for every guild on connect and for guilds joined later. Commands are registered
// once per guild.
func guildJoinedHandler(a guildCommandRegistrar) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		if g.Unavailable {
			return
		}

		l := a.Log().With(slog.String(logging.KeyGuildID, g.ID))
		l.Info("Joined guild", slog.String("name", g.Name))

		// Increment the total number of guilds.
		monitoring.TotalDiscordGuilds.Inc()

		if err := a.registerGuildCommands(g.ID); err != nil {
			l.Error("Error registering guild commands", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		if g.Unavailable {
			// An outage, the bot is still a member.
			return
		}

		a.Log().Info("Left guild", slog.String(logging.KeyGuildID, g.ID))

		// Decrement the total number of guilds.
		monitoring.TotalDiscordGuilds.Dec()
	}
}
