package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
	"golang.org/x/time/rate"
)

// Provisioner creates and deletes ticket channels. Channel creation shares a token bucket so a burst of
// button presses does not run into Discord's route limits.
type Provisioner struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s *discordgo.Session

	limiter *rate.Limiter
}

// NewProvisioner creates a new provisioner.
func NewProvisioner(l *slog.Logger, s *discordgo.Session, limiter *rate.Limiter) *Provisioner {
	return &Provisioner{
		l:       l,
		s:       s,
		limiter: limiter,
	}
}

func (p *Provisioner) CreateChannel(ctx context.Context, req *tickets.ChannelRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("error waiting for rate limiter: %w", err)
	}

	ch, err := p.s.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             req.ParentID,
		PermissionOverwrites: permissionOverwrites(req.Overwrites),
	})
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}

	// The caller has given up, so the channel would never be recorded.
	if err := ctx.Err(); err != nil {
		if _, delErr := p.s.ChannelDelete(ch.ID); delErr != nil {
			p.l.Error("Error deleting channel created after timeout",
				slog.String(logging.KeyError, delErr.Error()),
				slog.String(logging.KeyChannelID, ch.ID),
			)
		}
		return "", fmt.Errorf("channel created too late: %w", err)
	}
	return ch.ID, nil
}

func (p *Provisioner) DeleteChannel(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.s.ChannelDelete(channelID); err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func permissionOverwrites(overwrites []tickets.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		po := &discordgo.PermissionOverwrite{
			ID:   o.ID,
			Type: discordgo.PermissionOverwriteTypeRole,
		}
		if o.Kind == tickets.OverwriteMember {
			po.Type = discordgo.PermissionOverwriteTypeMember
		}

		if o.Allow {
			po.Allow = discordgo.PermissionAllText
			po.Deny = discordgo.PermissionMentionEveryone
		} else {
			po.Deny = discordgo.PermissionAll
		}
		out = append(out, po)
	}
	return out
}
