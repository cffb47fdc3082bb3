package tickets

import (
	"fmt"
	"time"
)

// Retention decides what happens to a ticket record once it is closed.
type Retention string

const (
	// RetentionRetain keeps closed tickets for history.
	RetentionRetain Retention = "retain"

	// RetentionDelete removes the record once the ticket is closed.
	RetentionDelete Retention = "delete"
)

const (
	DefaultProvisionTimeout = 10 * time.Second
	DefaultExportTimeout    = 30 * time.Second
	DefaultDeleteDelay      = 2 * time.Second
)

// ParseRetention parses a retention policy. An empty string is RetentionRetain.
func ParseRetention(s string) (Retention, error) {
	switch Retention(s) {
	case "", RetentionRetain:
		return RetentionRetain, nil
	case RetentionDelete:
		return RetentionDelete, nil
	default:
		return "", fmt.Errorf("unknown retention policy %q (use %q or %q)", s, RetentionRetain, RetentionDelete)
	}
}

// Options tunes the service. Zero values are replaced with the defaults.
type Options struct {
	// ProvisionTimeout bounds channel creation and deletion.
	ProvisionTimeout time.Duration

	// ExportTimeout bounds the transcript export.
	ExportTimeout time.Duration

	// DeleteDelay is how long a closed ticket's channel stays up before it is deleted.
	DeleteDelay time.Duration

	Retention Retention
}

func (o Options) withDefaults() Options {
	if o.ProvisionTimeout <= 0 {
		o.ProvisionTimeout = DefaultProvisionTimeout
	}
	if o.ExportTimeout <= 0 {
		o.ExportTimeout = DefaultExportTimeout
	}
	if o.DeleteDelay <= 0 {
		o.DeleteDelay = DefaultDeleteDelay
	}
	if o.Retention == "" {
		o.Retention = RetentionRetain
	}
	return o
}
