package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		user string
		role string
		want string
	}{
		{
			name: "both resolved",
			tpl:  "@User welcome, ask @SupportRole",
			user: "<@u1>",
			role: "<@&r1>",
			want: "<@u1> welcome, ask <@&r1>",
		},
		{
			name: "role unresolved at end",
			tpl:  "@User welcome, ask @SupportRole",
			user: "<@u1>",
			want: "<@u1> welcome, ask",
		},
		{
			name: "role unresolved at start",
			tpl:  "@SupportRole will help @User",
			user: "<@u1>",
			want: "will help <@u1>",
		},
		{
			name: "role unresolved in the middle",
			tpl:  "Hi @User, @SupportRole is on the way",
			user: "<@u1>",
			want: "Hi <@u1>, is on the way",
		},
		{
			name: "repeated tokens",
			tpl:  "@User @User @SupportRole @SupportRole",
			user: "<@u1>",
			role: "<@&r1>",
			want: "<@u1> <@u1> <@&r1> <@&r1>",
		},
		{
			name: "repeated unresolved",
			tpl:  "@SupportRole @SupportRole ping",
			user: "<@u1>",
			want: "ping",
		},
		{
			name: "no tokens",
			tpl:  "Thanks for reaching out",
			user: "<@u1>",
			want: "Thanks for reaching out",
		},
		{
			name: "token alone",
			tpl:  "@SupportRole",
			user: "<@u1>",
			want: "",
		},
		{
			name: "multiline",
			tpl:  "@User\n@SupportRole\nbye",
			user: "<@u1>",
			want: "<@u1>\n\nbye",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Render(tt.tpl, tt.user, tt.role))
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	const tpl = "@User welcome, ask @SupportRole"
	first := Render(tpl, "<@u1>", "")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Render(tpl, "<@u1>", ""))
	}
}
