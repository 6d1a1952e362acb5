package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &RecordingAPI{}
	scoped := NewScopedAPI("storefront", NewScopedAPI("catalogd", rec))

	scoped.ReportBroken("client.find-app", 42)
	scoped.ReportWarning("client.search", "hollow knight")
	scoped.ReportCount("client.cache-size", 3)
	scoped.ReportDebug("coalesced lookup")

	broken := rec.Find(KindBroken, "client.find-app")
	require.Len(t, broken, 1)
	require.Equal(t, "catalogd: storefront: client.find-app", broken[0].ID)
	require.Equal(t, []any{42}, broken[0].Params)

	counts := rec.Find(KindCount, "cache-size")
	require.Len(t, counts, 1)
	require.EqualValues(t, 3, counts[0].Count)

	require.Len(t, rec.Find(KindWarning, "client.search"), 1)
	require.Len(t, rec.Find(KindDebug, "coalesced lookup"), 1)
	require.Empty(t, rec.Find(KindBroken, "client.search"))
}

func TestSlogAPI(t *testing.T) {
	var buffer bytes.Buffer
	api := SlogAPI{Logger: slog.New(slog.NewTextHandler(&buffer, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	api.ReportBroken("fetcher.fetch-with-retry", errors.New("connection refused"), 3)
	api.ReportCount("client.cache-size", 7)

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "level=ERROR")
	require.Contains(t, lines[0], "id=fetcher.fetch-with-retry")
	require.Contains(t, lines[0], `err="connection refused"`)
	require.Contains(t, lines[0], "params.1=3")
	require.Contains(t, lines[1], "n=7")
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(&buffer, false)
	logger.Debug("hidden")
	logger.Info("shown")
	require.NotContains(t, buffer.String(), "hidden")
	require.Contains(t, buffer.String(), "shown")

	buffer.Reset()
	NewLogger(&buffer, true).Debug("visible")
	require.Contains(t, buffer.String(), "visible")
}
