package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
)

const (
	// pageSize is the most messages Discord returns per request.
	pageSize = 100

	// DefaultTranscriptLimit is the number of messages exported when no limit is set.
	DefaultTranscriptLimit = 1000

	transcriptTimeFormat = "2006-01-02 15:04:05"
)

// Exporter renders a channel's history as a plain text transcript.
type Exporter struct {
	// s is the discord session.
	s *discordgo.Session

	// limit is the most messages exported.
	limit int
}

// NewExporter creates a new exporter. A limit of zero or less uses DefaultTranscriptLimit.
func NewExporter(s *discordgo.Session, limit int) *Exporter {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}

	return &Exporter{
		s:     s,
		limit: limit,
	}
}

func (e *Exporter) Export(ctx context.Context, channelID string) (*tickets.Transcript, error) {
	msgs := make([]*discordgo.Message, 0, pageSize)

	before := ""
	for len(msgs) < e.limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := e.s.ChannelMessages(channelID, pageSize, before, "", "")
		if err != nil {
			return nil, fmt.Errorf("error getting channel messages: %w", err)
		}
		msgs = append(msgs, page...)

		if len(page) < pageSize {
			break
		}
		before = page[len(page)-1].ID
	}

	if len(msgs) > e.limit {
		msgs = msgs[:e.limit]
	}

	return &tickets.Transcript{
		Name:        fmt.Sprintf("transcript-%s.txt", channelID),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(formatTranscript(msgs)),
	}, nil
}

// formatTranscript writes one line per message, oldest first.
func formatTranscript(msgs []*discordgo.Message) string {
	sorted := make([]*discordgo.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	b := new(strings.Builder)
	for _, m := range sorted {
		author := "unknown"
		if m.Author != nil {
			author = m.Author.Username
		}

		fmt.Fprintf(b, "[%s] %s: %s", m.Timestamp.UTC().Format(transcriptTimeFormat), author, m.Content)
		for _, a := range m.Attachments {
			fmt.Fprintf(b, " [attachment: %s]", a.URL)
		}
		for _, em := range m.Embeds {
			if em.Title != "" || em.Description != "" {
				fmt.Fprintf(b, " [embed: %s %s]", em.Title, em.Description)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
