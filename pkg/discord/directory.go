package discord

import (
	"context"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
)

// Directory looks up guild roles.
type Directory struct {
	// s is the discord session.
	s *discordgo.Session
}

// NewDirectory creates a new directory.
func NewDirectory(s *discordgo.Session) *Directory {
	return &Directory{s: s}
}

// RoleExists checks the state cache first and falls back to the API.
func (d *Directory) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	if d.s.State != nil {
		if r, err := d.s.State.Role(guildID, roleID); err == nil && r != nil {
			return true, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return false, fmt.Errorf("error getting guild roles: %w", err)
	}
	return hasRole(roles, roleID), nil
}

func (d *Directory) UserMention(userID string) string {
	return UserMention(userID)
}

func (d *Directory) RoleMention(roleID string) string {
	return RoleMention(roleID)
}

func hasRole(roles []*discordgo.Role, roleID string) bool {
	for _, r := range roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}
