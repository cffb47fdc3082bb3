// Package template renders the message posted into a new ticket channel.
package template

import "strings"

const (
	// TokenUser is replaced with a mention of the ticket creator.
	TokenUser = "@User"

	// TokenSupportRole is replaced with a mention of the configured support role.
	TokenSupportRole = "@SupportRole"
)

// Render substitutes the placeholders in tpl. When roleMention is empty the support role token is
// stripped along with one adjacent space, the preceding one if there is one.
func Render(tpl, userMention, roleMention string) string {
	out := tpl
	if roleMention != "" {
		out = strings.ReplaceAll(out, TokenSupportRole, roleMention)
	} else {
		out = stripToken(out, TokenSupportRole)
	}

	return strings.ReplaceAll(out, TokenUser, userMention)
}

func stripToken(s, token string) string {
	b := new(strings.Builder)
	for {
		i := strings.Index(s, token)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}

		before, after := s[:i], s[i+len(token):]
		switch {
		case strings.HasSuffix(before, " "):
			before = before[:len(before)-1]
		case strings.HasPrefix(after, " "):
			after = after[1:]
		}

		b.WriteString(before)
		s = after
	}
}
