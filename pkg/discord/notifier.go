package discord

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
)

// Notifier posts ticket messages and audit entries.
type Notifier struct {
	// s is the discord session.
	s *discordgo.Session
}

// NewNotifier creates a new notifier.
func NewNotifier(s *discordgo.Session) *Notifier {
	return &Notifier{s: s}
}

func (n *Notifier) SendWelcome(ctx context.Context, channelID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.s.ChannelMessageSendComplex(channelID, welcomeMessage(content)); err != nil {
		return fmt.Errorf("error sending welcome message: %w", err)
	}
	return nil
}

func (n *Notifier) SendAudit(ctx context.Context, channelID string, entry *tickets.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.s.ChannelMessageSendComplex(channelID, auditMessage(entry)); err != nil {
		return fmt.Errorf("error sending audit message: %w", err)
	}
	return nil
}

func welcomeMessage(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeUsers,
				discordgo.AllowedMentionTypeRoles,
			},
		},
		Components: []discordgo.MessageComponent{
			closeButtonRow(),
		},
	}
}

func auditMessage(entry *tickets.AuditEntry) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Fields: make([]*discordgo.MessageEmbedField, 0),
	}

	t := entry.Ticket
	if t != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Owner", Value: UserMention(t.UserID), Inline: true},
			&discordgo.MessageEmbedField{Name: "Channel", Value: fmt.Sprintf("%s (`%s`)", ChannelMention(t.ChannelID), t.ChannelID), Inline: true},
		)
		if t.ID != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: "Ticket " + t.ID}
		}
	}

	switch entry.Kind {
	case tickets.AuditKindCreated:
		embed.Title = "Ticket Created"
		embed.Color = colorGreen
	case tickets.AuditKindClosed:
		embed.Title = "Ticket Closed"
		embed.Color = colorOrange
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Closed By", Value: UserMention(entry.ActorID), Inline: true})
		if entry.Transcript == nil {
			embed.Description = "Closed without transcript."
		}
	case tickets.AuditKindDeleteFailed:
		embed.Title = "Ticket Channel Not Deleted"
		embed.Color = colorRed
		embed.Description = "The ticket is closed but its channel could not be deleted, it needs to be removed manually."
	case tickets.AuditKindOrphan:
		embed.Title = "Orphaned Ticket Channel"
		embed.Color = colorRed
		embed.Description = "A ticket channel was created but the ticket could not be saved, and the channel could not be removed. It needs to be deleted manually."
	default:
		embed.Title = "Ticket " + string(entry.Kind)
	}

	if entry.Err != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Error", Value: truncate(entry.Err.Error(), 1024)})
	}

	msg := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if entry.Transcript != nil {
		msg.Files = []*discordgo.File{
			{
				Name:        entry.Transcript.Name,
				ContentType: entry.Transcript.ContentType,
				Reader:      bytes.NewReader(entry.Transcript.Data),
			},
		}
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
