package dataaccess

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     *Config
		want    any
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  &Config{Backend: BackendMemory},
			want: &MemoryStore{},
		},
		{
			name: "sqlite",
			cfg:  &Config{Backend: BackendSqlite, SqlitePath: filepath.Join(t.TempDir(), "data", "t.db")},
			want: &SqliteStore{},
		},
		{
			name:    "unknown",
			cfg:     &Config{Backend: "postgres"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(ctx, testLogger(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.IsType(t, tt.want, s)
			require.NoError(t, s.Ping(ctx))
			require.NoError(t, s.Close(ctx))
		})
	}
}
