package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/custom"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/messages"
	"github.com/stretchr/testify/require"
)

func sameProcessor(want, got commandProcessor) bool {
	return reflect.ValueOf(want).Pointer() == reflect.ValueOf(got).Pointer()
}

func ptr[T any](v T) *T {
	return &v
}

func TestSetupCmdController(t *testing.T) {
	admin := &discordgo.Member{Permissions: discordgo.PermissionAdministrator}
	sub := func(name string) *discordgo.ApplicationCommandInteractionDataOption {
		return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand}
	}

	tests := []struct {
		name   string
		member *discordgo.Member
		opt    *discordgo.ApplicationCommandInteractionDataOption
		want   commandProcessor
	}{
		{name: "not admin", member: &discordgo.Member{}, opt: sub(wipeCmdName), want: permissionDeniedHandler},
		{name: "set", member: admin, opt: &discordgo.ApplicationCommandInteractionDataOption{
			Name: setCmdName,
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
		}, want: setSettingHandler},
		{name: "wipe", member: admin, opt: sub(wipeCmdName), want: wipeHandler},
		{name: "panel", member: admin, opt: sub(panelCmdName), want: panelHandler},
		{name: "list", member: admin, opt: sub(listCmdName), want: listHandler},
		{name: "config", member: admin, opt: sub(configCmdName), want: configHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := setupCmdController(nil, commandInteraction(setupCmdName, tt.member, tt.opt))
			require.NoError(t, err)
			require.NotNil(t, p)
			require.True(t, sameProcessor(tt.want, p))
		})
	}

	_, err := setupCmdController(nil, commandInteraction(setupCmdName, admin, sub("unknown")))
	require.Error(t, err)
}

func TestSettingUpdate(t *testing.T) {
	tests := []struct {
		name      string
		sub       string
		value     any
		want      *entities.SettingsUpdate
		wantLabel string
		wantShown string
		wantErr   bool
	}{
		{
			name:      "logs channel",
			sub:       setLogsChannelCmdName,
			value:     "c1",
			want:      &entities.SettingsUpdate{LogsChannelID: ptr("c1")},
			wantLabel: "logs channel",
			wantShown: "<#c1>",
		},
		{
			name:      "support role",
			sub:       setSupportRoleCmdName,
			value:     "r1",
			want:      &entities.SettingsUpdate{SupportRoleID: ptr("r1")},
			wantLabel: "support role",
			wantShown: "<@&r1>",
		},
		{
			name:      "category",
			sub:       setCategoryCmdName,
			value:     "cat",
			want:      &entities.SettingsUpdate{TicketCategoryID: ptr("cat")},
			wantLabel: "ticket category",
			wantShown: "<#cat>",
		},
		{
			name:      "panel description",
			sub:       setPanelDescriptionCmdName,
			value:     "Need help?",
			want:      &entities.SettingsUpdate{PanelDescription: ptr("Need help?")},
			wantLabel: "panel description",
			wantShown: "`Need help?`",
		},
		{
			name:      "ticket message",
			sub:       setTicketMessageCmdName,
			value:     "Hi @User, `@SupportRole` is here",
			want:      &entities.SettingsUpdate{TicketMessageTemplate: ptr("Hi @User, `@SupportRole` is here")},
			wantLabel: "ticket message",
			wantShown: "`Hi @User, '@SupportRole' is here`",
		},
		{
			name:      "ticket limit",
			sub:       setTicketLimitCmdName,
			value:     int64(3),
			want:      &entities.SettingsUpdate{TicketLimit: ptr(3)},
			wantLabel: "ticket limit",
			wantShown: "3",
		},
		{
			name:    "limit of wrong type",
			sub:     setTicketLimitCmdName,
			value:   "3",
			wantErr: true,
		},
		{
			name:    "string of wrong type",
			sub:     setLogsChannelCmdName,
			value:   int64(1),
			wantErr: true,
		},
		{
			name:    "unknown setting",
			sub:     "colour",
			value:   "red",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, label, shown, err := settingUpdate(tt.sub, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantLabel, label)
			require.Equal(t, tt.wantShown, shown)
		})
	}
}

func TestOpenTicketsEmbed(t *testing.T) {
	empty := openTicketsEmbed(nil)
	require.Equal(t, "Open Tickets (0)", empty.Title)
	require.Equal(t, messages.NoOpenTickets, empty.Description)

	created := custom.Datetime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	embed := openTicketsEmbed([]*entities.Ticket{
		{ChannelID: "c1", UserID: "u1", CreatedAt: created},
		{ChannelID: "c2", UserID: "u2", CreatedAt: created},
	})
	require.Equal(t, "Open Tickets (2)", embed.Title)
	require.Equal(t, "<#c1> by <@u1>, opened <t:1709294400:R>\n<#c2> by <@u2>, opened <t:1709294400:R>\n", embed.Description)

	many := make([]*entities.Ticket, maxListedTickets+3)
	for n := range many {
		many[n] = &entities.Ticket{ChannelID: "c", UserID: "u", CreatedAt: created}
	}
	embed = openTicketsEmbed(many)
	require.Contains(t, embed.Description, "... and 3 more\n")
}

func TestSettingsEmbed(t *testing.T) {
	embed := settingsEmbed(entities.EffectiveSettings("g1", &entities.GuildSettings{
		SupportRoleID: "r1",
		TicketLimit:   2,
	}))

	values := make(map[string]string, len(embed.Fields))
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}

	require.Equal(t, map[string]string{
		"Logs Channel":      "Not set",
		"Support Role":      "<@&r1>",
		"Category":          "Not set",
		"Ticket Limit":      "2",
		"Panel Description": "`" + entities.DefaultPanelDescription + "`",
		"Ticket Message":    "`" + entities.DefaultTicketMessageTemplate + "`",
	}, values)
}
