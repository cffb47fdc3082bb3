package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/discord"
	"github.com/Jacobbrewer1/ticketbot/pkg/messages"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
)

const (
	// TicketCmdName is the command for controlling tickets.
	TicketCmdName = "ticket"

	// CloseCmdName is the sub command for closing the ticket of the current channel.
	CloseCmdName = "close"
)

// ticketCmd is the command for controlling tickets.
var ticketCmd = &discordgo.ApplicationCommand{
	Name:        TicketCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for controlling tickets.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        CloseCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This closes the ticket for the channel that the command was executed in.",
		},
	},
}

func ticketCmdController(_ IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return nil, errors.New("no sub command provided")
	}

	switch opts[0].Name {
	case CloseCmdName:
		return closeTicketHandler, nil
	default:
		return nil, fmt.Errorf("unhandled sub command %s", opts[0].Name)
	}
}

// openTicketHandler handles the button on the ticket panel.
func openTicketHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	user := invoker(i.Interaction)
	if i.GuildID == "" || user == nil {
		return r.Ephemeral(messages.ErrNotInGuild)
	}

	if err := r.Defer(true); err != nil {
		return err
	}

	res, err := a.Tickets().CreateTicket(context.Background(), i.GuildID, user.ID, displayName(i.Interaction))
	if err != nil {
		return fmt.Errorf("error creating ticket: %w", err)
	}
	return r.Ephemeral(createResultMessage(res))
}

// closeTicketHandler handles the close button and the close command.
func closeTicketHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	user := invoker(i.Interaction)
	if i.GuildID == "" || user == nil {
		return r.Ephemeral(messages.ErrNotInGuild)
	}

	// Exporting the transcript can take longer than the response window. The acknowledgement is public so
	// everyone in the ticket sees who closed it.
	if err := r.Defer(false); err != nil {
		return err
	}

	res, err := a.Tickets().CloseTicket(context.Background(), i.ChannelID, user.ID)
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	return r.Public(closeResultMessage(res, user.ID))
}

func createResultMessage(res *tickets.CreateResult) string {
	switch res.Outcome {
	case tickets.CreateOutcomeCreated:
		return fmt.Sprintf(messages.TicketCreated, discord.ChannelMention(res.ChannelID))
	case tickets.CreateOutcomeAlreadyOpen:
		return messages.TicketAlreadyOpen
	case tickets.CreateOutcomeLimitReached:
		return messages.TicketLimitReached
	case tickets.CreateOutcomeProvisioningFailed:
		return messages.TicketProvisioningFailed
	default:
		return messages.ErrUserErrorProcessing
	}
}

func closeResultMessage(res *tickets.CloseResult, closerID string) string {
	switch res.Outcome {
	case tickets.CloseOutcomeClosed:
		if res.ExportErr != nil {
			return fmt.Sprintf(messages.TicketClosingWithoutTranscript, discord.UserMention(closerID))
		}
		return fmt.Sprintf(messages.TicketClosing, discord.UserMention(closerID))
	case tickets.CloseOutcomeNotOpenOrNotFound:
		return messages.TicketNotOpen
	default:
		return messages.ErrUserErrorProcessing
	}
}
