package store

import (
	"context"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskboard/internal/store/api"
	"github.com/mesh-intelligence/taskboard/internal/store/local"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
		check   func(t *testing.T, s types.Store)
	}{
		{
			name: "local backend seeds the slot",
			cfg:  types.Config{Backend: types.BackendLocal, DataDir: t.TempDir()},
			check: func(t *testing.T, s types.Store) {
				_, ok := s.(*local.Store)
				require.True(t, ok)
				_, ok = s.(Watcher)
				assert.True(t, ok, "local store reports external changes")

				tasks, err := s.List(context.Background())
				require.NoError(t, err)
				assert.NotEmpty(t, tasks)
			},
		},
		{
			name: "api backend uses the default base URL",
			cfg:  types.Config{Backend: types.BackendAPI},
			check: func(t *testing.T, s types.Store) {
				a, ok := s.(*api.Store)
				require.True(t, ok)
				assert.Equal(t, types.DefaultBaseURL, a.BaseURL())
				_, ok = s.(Watcher)
				assert.False(t, ok)
			},
		},
		{
			name:    "empty backend",
			cfg:     types.Config{},
			wantErr: types.ErrBackendEmpty,
		},
		{
			name:    "unknown backend",
			cfg:     types.Config{Backend: "carrier-pigeon"},
			wantErr: types.ErrBackendUnknown,
		},
		{
			name:    "bad base URL",
			cfg:     types.Config{Backend: types.BackendAPI, API: types.APIConfig{BaseURL: "localhost:3001"}},
			wantErr: types.ErrBaseURLInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg, zerolog.Nop())
			if tt.wantErr != nil {
				var fieldErrs criterio.FieldErrors
				require.ErrorAs(t, err, &fieldErrs)
				require.NotEmpty(t, fieldErrs)
				assert.ErrorIs(t, fieldErrs[0].Err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			tt.check(t, s)
		})
	}
}
