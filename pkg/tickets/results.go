package tickets

import (
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
)

var (
	// ErrPermissionDenied is returned by the integration layer when the caller is not an administrator.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrExportFailed wraps a failed transcript export.
	ErrExportFailed = errors.New("transcript export failed")
)

// CreateOutcome is the expected outcome of CreateTicket.
type CreateOutcome int

const (
	CreateOutcomeCreated CreateOutcome = iota
	CreateOutcomeAlreadyOpen
	CreateOutcomeLimitReached
	CreateOutcomeProvisioningFailed
)

func (o CreateOutcome) String() string {
	switch o {
	case CreateOutcomeCreated:
		return "created"
	case CreateOutcomeAlreadyOpen:
		return "already_open"
	case CreateOutcomeLimitReached:
		return "limit_reached"
	case CreateOutcomeProvisioningFailed:
		return "provisioning_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// CreateResult is the result of CreateTicket.
type CreateResult struct {
	Outcome CreateOutcome

	// ChannelID and Ticket are set when the ticket was created.
	ChannelID string
	Ticket    *entities.Ticket

	// Err is the provisioning failure.
	Err error
}

// CloseOutcome is the expected outcome of CloseTicket.
type CloseOutcome int

const (
	CloseOutcomeClosed CloseOutcome = iota
	CloseOutcomeNotOpenOrNotFound
)

func (o CloseOutcome) String() string {
	switch o {
	case CloseOutcomeClosed:
		return "closed"
	case CloseOutcomeNotOpenOrNotFound:
		return "not_open_or_not_found"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// CloseResult is the result of CloseTicket.
type CloseResult struct {
	Outcome CloseOutcome

	// Ticket is the closed ticket.
	Ticket *entities.Ticket

	// PriorStatus is the status the channel's ticket had when it could not be closed. Empty if there is none.
	PriorStatus entities.TicketStatus

	// ExportErr wraps ErrExportFailed when the transcript could not be exported.
	ExportErr error
}

// OrphanChannelError is returned when a ticket channel was created, the ticket could not be recorded, and
// the channel could not be deleted again.
type OrphanChannelError struct {
	GuildID   string
	ChannelID string

	// Cause is why the ticket could not be recorded.
	Cause error

	// DeleteErr is why the channel could not be deleted.
	DeleteErr error
}

func (e *OrphanChannelError) Error() string {
	return fmt.Sprintf("orphaned channel %s in guild %s: %v (delete failed: %v)", e.ChannelID, e.GuildID, e.Cause, e.DeleteErr)
}

func (e *OrphanChannelError) Unwrap() error {
	return e.Cause
}
