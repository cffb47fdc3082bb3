package main

import (
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/messages"
)

// responder replies to an interaction. Discord only accepts one initial response, everything after that
// (including the reply to a deferred response) is sent as a followup.
type responder struct {
	s *discordgo.Session
	i *discordgo.Interaction

	// responded is set once the initial response has been sent.
	responded bool
}

func newResponder(s *discordgo.Session, i *discordgo.Interaction) *responder {
	return &responder{
		s: s,
		i: i,
	}
}

// Defer acknowledges the interaction so that slow work does not hit the three second response window.
func (r *responder) Defer(ephemeral bool) error {
	data := new(discordgo.InteractionResponseData)
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}); err != nil {
		return fmt.Errorf("error deferring interaction: %w", err)
	}
	r.responded = true
	return nil
}

// Ephemeral replies with a message only the caller can see.
func (r *responder) Ephemeral(content string) error {
	return r.send(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// Public replies with a message everyone in the channel can see.
func (r *responder) Public(content string) error {
	return r.send(&discordgo.InteractionResponseData{
		Content: content,
	})
}

// Embed replies with an embed only the caller can see.
func (r *responder) Embed(embed *discordgo.MessageEmbed) error {
	return r.send(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

func (r *responder) send(data *discordgo.InteractionResponseData) error {
	if data.AllowedMentions == nil {
		data.AllowedMentions = &discordgo.MessageAllowedMentions{}
	}

	if !r.responded {
		if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}); err != nil {
			return fmt.Errorf("error responding to interaction: %w", err)
		}
		r.responded = true
		return nil
	}

	if _, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
		Content:         data.Content,
		Embeds:          data.Embeds,
		Flags:           data.Flags,
		AllowedMentions: data.AllowedMentions,
	}); err != nil {
		return fmt.Errorf("error sending followup: %w", err)
	}
	return nil
}

func respondError(r *responder) error {
	return r.Ephemeral(messages.ErrUserErrorProcessing)
}

// isAdmin reports whether the member invoking the interaction is an administrator of the guild.
func isAdmin(i *discordgo.Interaction) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// invoker returns the user behind the interaction, in a guild or a DM.
func invoker(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// displayName is the name used for a new ticket channel.
func displayName(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}
	if u := invoker(i); u != nil {
		return u.Username
	}
	return ""
}
