package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/discord"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/Jacobbrewer1/ticketbot/pkg/messages"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
)

const (
	// setupCmdName is the command for all configuration commands.
	setupCmdName = "setup"

	// setCmdName is the group of sub commands that change a setting.
	setCmdName = "set"

	setLogsChannelCmdName      = "logs-channel"
	setSupportRoleCmdName      = "support-role"
	setCategoryCmdName         = "category"
	setPanelDescriptionCmdName = "panel-description"
	setTicketMessageCmdName    = "ticket-message"
	setTicketLimitCmdName      = "ticket-limit"

	wipeCmdName   = "wipe"
	panelCmdName  = "panel"
	listCmdName   = "list"
	configCmdName = "config"

	// valueOptionName is the name of the single option of every set sub command.
	valueOptionName = "value"

	// maxListedTickets keeps the list embed within Discord's description limit.
	maxListedTickets = 50
)

var minTicketLimit = 1.0

// setupCmd is the command for all configuration commands.
var setupCmd = &discordgo.ApplicationCommand{
	Name:        setupCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for all configuration commands.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        setCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
			Description: "Change a ticketing setting.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        setLogsChannelCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The channel that ticket audit messages are posted in.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:         valueOptionName,
							Type:         discordgo.ApplicationCommandOptionChannel,
							Description:  "The logs channel.",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     true,
						},
					},
				},
				{
					Name:        setSupportRoleCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The role that can see every ticket.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        valueOptionName,
							Type:        discordgo.ApplicationCommandOptionRole,
							Description: "The support role.",
							Required:    true,
						},
					},
				},
				{
					Name:        setCategoryCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The category that ticket channels are created in.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:         valueOptionName,
							Type:         discordgo.ApplicationCommandOptionChannel,
							Description:  "The ticket category.",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
							Required:     true,
						},
					},
				},
				{
					Name:        setPanelDescriptionCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The text shown on the ticket panel.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        valueOptionName,
							Type:        discordgo.ApplicationCommandOptionString,
							Description: "The panel description.",
							Required:    true,
						},
					},
				},
				{
					Name:        setTicketMessageCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The message posted in new tickets. Use @User and @SupportRole as placeholders.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        valueOptionName,
							Type:        discordgo.ApplicationCommandOptionString,
							Description: "The ticket message.",
							Required:    true,
						},
					},
				},
				{
					Name:        setTicketLimitCmdName,
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Description: "The most tickets that can be open at once in this server.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Name:        valueOptionName,
							Type:        discordgo.ApplicationCommandOptionInteger,
							Description: "The ticket limit.",
							MinValue:    &minTicketLimit,
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        wipeCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Delete every ticket record of this server. Ticket channels are left in place.",
		},
		{
			Name:        panelCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Post the ticket panel in this channel.",
		},
		{
			Name:        listCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "List the open tickets of this server.",
		},
		{
			Name:        configCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Show the ticketing settings of this server.",
		},
	},
}

func setupCmdController(_ IApp, i *discordgo.InteractionCreate) (commandProcessor, error) {
	// Ensure the user is an administrator.
	if !isAdmin(i.Interaction) {
		return permissionDeniedHandler, nil
	}

	opts := i.ApplicationCommandData().Options
	if len(opts) == 0 {
		return nil, errors.New("no sub command provided")
	}

	switch opts[0].Name {
	case setCmdName:
		return setSettingHandler, nil
	case wipeCmdName:
		return wipeHandler, nil
	case panelCmdName:
		return panelHandler, nil
	case listCmdName:
		return listHandler, nil
	case configCmdName:
		return configHandler, nil
	default:
		return nil, fmt.Errorf("unhandled sub command %s", opts[0].Name)
	}
}

func permissionDeniedHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	l := a.Log().With(slog.String(logging.KeyGuildID, i.GuildID))
	if u := invoker(i.Interaction); u != nil {
		l = l.With(slog.String(logging.KeyUserID, u.ID))
	}
	l.Info("Rejected setup command", slog.String(logging.KeyError, tickets.ErrPermissionDenied.Error()))

	return r.Ephemeral(messages.ErrPermissionDenied)
}

func setSettingHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	group := i.ApplicationCommandData().Options[0]
	if len(group.Options) == 0 || len(group.Options[0].Options) == 0 {
		return errors.New("no setting provided")
	}
	sub := group.Options[0]
	opt := sub.Options[0]

	var value any
	switch opt.Type {
	case discordgo.ApplicationCommandOptionChannel:
		ch := opt.ChannelValue(a.Session())
		want := discordgo.ChannelTypeGuildText
		invalid := messages.InvalidChannel
		if sub.Name == setCategoryCmdName {
			want = discordgo.ChannelTypeGuildCategory
			invalid = messages.InvalidCategory
		}
		if ch.Type != want {
			return r.Ephemeral(fmt.Sprintf(invalid, discord.ChannelMention(ch.ID)))
		}
		value = ch.ID
	case discordgo.ApplicationCommandOptionRole:
		value = opt.RoleValue(a.Session(), i.GuildID).ID
	case discordgo.ApplicationCommandOptionInteger:
		value = opt.IntValue()
	default:
		value = opt.StringValue()
	}

	update, label, shown, err := settingUpdate(sub.Name, value)
	if err != nil {
		return err
	}

	err = a.Tickets().UpdateSettings(context.Background(), i.GuildID, update)
	if errors.Is(err, tickets.ErrInvalidLimit) {
		return r.Ephemeral(messages.InvalidTicketLimit)
	} else if err != nil {
		return fmt.Errorf("error updating settings: %w", err)
	}

	return r.Ephemeral(fmt.Sprintf(messages.SettingUpdated, label, shown))
}

// settingUpdate builds the update for a set sub command, along with how to describe it to the admin.
func settingUpdate(sub string, value any) (update *entities.SettingsUpdate, label, shown string, err error) {
	update = new(entities.SettingsUpdate)

	str := func() (string, error) {
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected a string for %s, got %T", sub, value)
		}
		return s, nil
	}

	var s string
	switch sub {
	case setLogsChannelCmdName:
		if s, err = str(); err == nil {
			update.LogsChannelID = &s
			label, shown = "logs channel", discord.ChannelMention(s)
		}
	case setSupportRoleCmdName:
		if s, err = str(); err == nil {
			update.SupportRoleID = &s
			label, shown = "support role", discord.RoleMention(s)
		}
	case setCategoryCmdName:
		if s, err = str(); err == nil {
			update.TicketCategoryID = &s
			label, shown = "ticket category", discord.ChannelMention(s)
		}
	case setPanelDescriptionCmdName:
		if s, err = str(); err == nil {
			update.PanelDescription = &s
			label, shown = "panel description", quote(s)
		}
	case setTicketMessageCmdName:
		if s, err = str(); err == nil {
			update.TicketMessageTemplate = &s
			label, shown = "ticket message", quote(s)
		}
	case setTicketLimitCmdName:
		n, ok := value.(int64)
		if !ok {
			return nil, "", "", fmt.Errorf("expected an integer for %s, got %T", sub, value)
		}
		limit := int(n)
		update.TicketLimit = &limit
		label, shown = "ticket limit", strconv.Itoa(limit)
	default:
		return nil, "", "", fmt.Errorf("unhandled setting %s", sub)
	}

	if err != nil {
		return nil, "", "", err
	}
	return update, label, shown, nil
}

func wipeHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	n, err := a.Tickets().Wipe(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error wiping tickets: %w", err)
	}
	return r.Ephemeral(fmt.Sprintf(messages.TicketsWiped, n))
}

func panelHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	settings, err := a.Tickets().Settings(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}

	if _, err := a.Session().ChannelMessageSendComplex(i.ChannelID, discord.PanelMessage(settings.PanelDescription)); err != nil {
		return fmt.Errorf("error sending panel: %w", err)
	}
	return r.Ephemeral(messages.PanelPosted)
}

func listHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	open, err := a.Tickets().OpenTickets(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error listing tickets: %w", err)
	}
	return r.Embed(openTicketsEmbed(open))
}

func configHandler(a IApp, r *responder, i *discordgo.InteractionCreate) error {
	settings, err := a.Tickets().Settings(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting settings: %w", err)
	}
	return r.Embed(settingsEmbed(settings))
}

func openTicketsEmbed(open []*entities.Ticket) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Open Tickets (%d)", len(open)),
	}
	if len(open) == 0 {
		embed.Description = messages.NoOpenTickets
		return embed
	}

	b := new(strings.Builder)
	for n, t := range open {
		if n == maxListedTickets {
			fmt.Fprintf(b, "... and %d more\n", len(open)-maxListedTickets)
			break
		}
		fmt.Fprintf(b, "%s by %s, opened <t:%d:R>\n",
			discord.ChannelMention(t.ChannelID),
			discord.UserMention(t.UserID),
			t.CreatedAt.Time().Unix(),
		)
	}
	embed.Description = b.String()
	return embed
}

func settingsEmbed(settings *entities.GuildSettings) *discordgo.MessageEmbed {
	orNone := func(id string, mention func(string) string) string {
		if id == "" {
			return "Not set"
		}
		return mention(id)
	}

	return &discordgo.MessageEmbed{
		Title: "Ticket Settings",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Logs Channel", Value: orNone(settings.LogsChannelID, discord.ChannelMention), Inline: true},
			{Name: "Support Role", Value: orNone(settings.SupportRoleID, discord.RoleMention), Inline: true},
			{Name: "Category", Value: orNone(settings.TicketCategoryID, discord.ChannelMention), Inline: true},
			{Name: "Ticket Limit", Value: strconv.Itoa(settings.TicketLimit), Inline: true},
			{Name: "Panel Description", Value: quote(settings.PanelDescription)},
			{Name: "Ticket Message", Value: quote(settings.TicketMessageTemplate)},
		},
	}
}

// quote shows free text in a code span so placeholders and mentions are not rendered.
func quote(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}
