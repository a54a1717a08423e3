package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type traceKey struct{}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "coffeeshop", traceID)

	ctx := context.WithValue(context.Background(), traceKey{}, "abc123")
	log.Info(ctx, "order placed", "order_id", 7)
	log.Error(context.Background(), "place order", "error", errors.New("boom"))

	recs := records(t, &buf)
	require.Len(t, recs, 2)

	assert.Equal(t, "order placed", recs[0]["msg"])
	assert.Equal(t, "info", recs[0]["level"])
	assert.Equal(t, "coffeeshop", recs[0]["service"])
	assert.Equal(t, "abc123", recs[0]["trace_id"])
	assert.EqualValues(t, 7, recs[0]["order_id"])

	assert.Equal(t, "error", recs[1]["level"])
	assert.Equal(t, "boom", recs[1]["error"])
	assert.NotContains(t, recs[1], "trace_id")
}

func TestLogger_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "coffeeshop", nil)

	log.Debug(context.Background(), "debug")
	log.Info(context.Background(), "info")
	log.Warn(context.Background(), "warn")

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "warn", recs[0]["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
