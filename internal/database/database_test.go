package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyPinger fails a fixed number of pings before succeeding.
type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitForDatabase(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		timeout   time.Duration
		wantErr   bool
		wantCalls int
	}{
		{name: "ready immediately", failures: 0, timeout: time.Second, wantCalls: 1},
		{name: "ready after retries", failures: 2, timeout: 10 * time.Second, wantCalls: 3},
		{name: "no timeout pings once", failures: 1, timeout: 0, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &flakyPinger{failures: tt.failures}

			err := waitForDatabase(context.Background(), p, tt.timeout, zerolog.Nop())

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to ping database")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, p.calls)
		})
	}
}

func TestWaitForDatabase_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &flakyPinger{failures: 100}
	err := waitForDatabase(ctx, p, time.Minute, zerolog.Nop())

	require.Error(t, err)
	assert.LessOrEqual(t, p.calls, 1)
}
