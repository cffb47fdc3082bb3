// Package messages holds the text shown to Discord users.
package messages

const (
	ErrUserErrorProcessing = "There was an error processing your request. Please try again later."

	ErrPermissionDenied = "You must be an administrator to use this command."

	ErrNotInGuild = "This command can only be used in a server."

	TicketCreated = "Your ticket has been created: %s"

	TicketAlreadyOpen = "You already have an open ticket."

	TicketLimitReached = "The maximum number of open tickets has been reached. Please try again later."

	TicketProvisioningFailed = "Your ticket channel could not be created. Please try again."

	TicketClosing = "Ticket closed by %s. Archiving..."

	TicketClosingWithoutTranscript = "Ticket closed by %s. The transcript could not be saved. Archiving..."

	TicketNotOpen = "There is no open ticket in this channel."

	SettingUpdated = "The %s has been set to %s."

	InvalidTicketLimit = "The ticket limit must be at least 1."

	InvalidCategory = "%s is not a category."

	InvalidChannel = "%s is not a text channel."

	TicketsWiped = "Deleted %d ticket records. Ticket channels were left in place."

	PanelPosted = "The ticket panel has been posted."

	NoOpenTickets = "There are no open tickets."
)
