package entities

const (
	// DefaultTicketLimit is the number of simultaneously open tickets a guild may have when none is configured.
	DefaultTicketLimit = 50

	// DefaultPanelDescription is shown on the ticket panel when none is configured.
	DefaultPanelDescription = "Click the button below to open a private support ticket."

	// DefaultTicketMessageTemplate is posted into new ticket channels when none is configured.
	DefaultTicketMessageTemplate = "@User your ticket has been created. @SupportRole will be with you shortly."
)

// GuildSettings is the ticketing configuration for a guild.
type GuildSettings struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// LogsChannelID is where audit messages are posted.
	LogsChannelID string `json:"logs_channel_id,omitempty" bson:"logs_channel_id,omitempty"`

	// SupportRoleID is the role granted access to every ticket channel.
	SupportRoleID string `json:"support_role_id,omitempty" bson:"support_role_id,omitempty"`

	// TicketCategoryID is the category new ticket channels are created in.
	TicketCategoryID string `json:"ticket_category_id,omitempty" bson:"ticket_category_id,omitempty"`

	// TicketLimit is the ceiling on simultaneously open tickets in the guild.
	TicketLimit int `json:"ticket_limit,omitempty" bson:"ticket_limit,omitempty"`

	// PanelDescription is shown on the ticket creation panel.
	PanelDescription string `json:"panel_description,omitempty" bson:"panel_description,omitempty"`

	// TicketMessageTemplate is rendered into new ticket channels. See the template package for placeholders.
	TicketMessageTemplate string `json:"ticket_message_template,omitempty" bson:"ticket_message_template,omitempty"`
}

// SettingsUpdate is a partial update of a guild's settings. Nil fields are left untouched.
type SettingsUpdate struct {
	LogsChannelID         *string
	SupportRoleID         *string
	TicketCategoryID      *string
	TicketLimit           *int
	PanelDescription      *string
	TicketMessageTemplate *string
}

// IsEmpty reports whether the update changes nothing.
func (u *SettingsUpdate) IsEmpty() bool {
	return u == nil || (u.LogsChannelID == nil &&
		u.SupportRoleID == nil &&
		u.TicketCategoryID == nil &&
		u.TicketLimit == nil &&
		u.PanelDescription == nil &&
		u.TicketMessageTemplate == nil)
}

// Apply applies the update to the settings in place.
func (u *SettingsUpdate) Apply(s *GuildSettings) {
	if u == nil || s == nil {
		return
	}
	if u.LogsChannelID != nil {
		s.LogsChannelID = *u.LogsChannelID
	}
	if u.SupportRoleID != nil {
		s.SupportRoleID = *u.SupportRoleID
	}
	if u.TicketCategoryID != nil {
		s.TicketCategoryID = *u.TicketCategoryID
	}
	if u.TicketLimit != nil {
		s.TicketLimit = *u.TicketLimit
	}
	if u.PanelDescription != nil {
		s.PanelDescription = *u.PanelDescription
	}
	if u.TicketMessageTemplate != nil {
		s.TicketMessageTemplate = *u.TicketMessageTemplate
	}
}

// EffectiveSettings merges the stored settings of a guild with the defaults. stored may be nil.
// This is the only place defaults are applied.
func EffectiveSettings(guildID string, stored *GuildSettings) *GuildSettings {
	eff := &GuildSettings{GuildID: guildID}
	if stored != nil {
		*eff = *stored
		eff.GuildID = guildID
	}

	if eff.TicketLimit <= 0 {
		eff.TicketLimit = DefaultTicketLimit
	}
	if eff.PanelDescription == "" {
		eff.PanelDescription = DefaultPanelDescription
	}
	if eff.TicketMessageTemplate == "" {
		eff.TicketMessageTemplate = DefaultTicketMessageTemplate
	}
	return eff
}
