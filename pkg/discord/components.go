package discord

import (
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
)

const (
	// OpenTicketButtonID is the ID for the open ticket button.
	OpenTicketButtonID = "open_ticket_button"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket_button"
)

const (
	// TicketEmoji is the emoji used on the open ticket button. (Envelope with arrow)
	TicketEmoji = "\U0001F4E9"

	// CloseEmoji is the emoji used on the close ticket button. (Padlock)
	CloseEmoji = "\U0001F510"
)

const (
	colorGreen  = 0x2ecc71
	colorOrange = 0xe67e22
	colorRed    = 0xe74c3c
	colorBlue   = 0x3498db
)

// closeButtonRow is posted in every ticket channel.
func closeButtonRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    fmt.Sprintf("%s Close", CloseEmoji),
				Style:    discordgo.DangerButton,
				CustomID: CloseTicketButtonID,
			},
		},
	}
}

// PanelMessage is the message that lets users open a ticket.
func PanelMessage(description string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Support Tickets",
				Description: description,
				Color:       colorBlue,
			},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Create Ticket", TicketEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: OpenTicketButtonID,
					},
				},
			},
		},
	}
}

// UserMention is the mention syntax for a user.
func UserMention(userID string) string {
	return "<@" + userID + ">"
}

// RoleMention is the mention syntax for a role.
func RoleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

// ChannelMention is the mention syntax for a channel.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}
