package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ali123/ali123/client/test/mocks"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/ali123/ali123/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("ALI123_STORAGE_DRIVER", "sqlite")
	t.Setenv("ALI123_STORAGE_SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("ALI123_METRICS_ENABLED", "false")
	t.Setenv("ALI123_LOG_LEVEL", "error")
	t.Setenv("ALI123_LOG_OUTPUT", "stderr")
}

func writePayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPreviewCommand(t *testing.T) {
	path := writePayload(t, `{"price":{"regular":19},"price_rules":[{"type":"multiplier","value":1.5,"pretty":".99"}]}`)

	out, err := run(t, "preview", "--file", path)
	require.NoError(t, err)

	var result types.PreviewResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 19.0, result.Original.Regular)
	assert.Equal(t, 28.99, result.Preview.Regular)
}

func TestPreviewCommand_RequiresFile(t *testing.T) {
	_, err := run(t, "preview")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestPreviewCommand_UnsupportedRule(t *testing.T) {
	path := writePayload(t, `{"price":{"regular":20},"price_rules":[{"type":"bogus","value":1}]}`)

	_, err := run(t, "preview", "--file", path)
	assert.Error(t, err)
}

func TestQueueThenProcess(t *testing.T) {
	useSQLite(t)
	path := writePayload(t, `{"ali_id":"1005001","title":"Desk Lamp","price":{"regular":100},"price_rules":[{"type":"percentage","value":-10}]}`)

	out, err := run(t, "queue", "--file", path, "--store", "2")
	require.NoError(t, err)
	var entry types.QueueEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, int64(2), entry.StoreID)
	assert.Equal(t, "1005001", entry.Payload.ExternalID)

	out, err = run(t, "process")
	require.NoError(t, err)
	var stats types.ProcessStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Claimed)
	assert.Equal(t, 1, stats.Completed)

	out, err = run(t, "process")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.Claimed)
}

func TestQueueCommand_ValidationError(t *testing.T) {
	useSQLite(t)
	path := writePayload(t, `{"title":"no id"}`)

	_, err := run(t, "queue", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "external_id")
}

func TestMigrateAndUserAdd(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date on sqlite")

	out, err = run(t, "user", "add", "ops", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, `user "ops" saved`)

	out, err = run(t, "user", "delete", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, `user "ops" deleted`)
}

func TestTrackingSyncCommand_NoOrders(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "tracking-sync")
	require.NoError(t, err)
	var stats types.TrackingSyncStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, types.TrackingSyncStats{}, stats)
}

func TestEventsCommand_NeedsBroker(t *testing.T) {
	useSQLite(t)

	_, err := run(t, "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker")
}

func TestTailEvents(t *testing.T) {
	event := message_broaker.Event{
		ID:         "e1",
		Type:       "import.completed",
		StoreID:    3,
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Data:       map[string]any{"entry_id": 9},
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	var gotQueue string
	broker := &mocks.MockMessageBroker{ConsumeFunc: func(ctx context.Context, queue string) (<-chan []byte, error) {
		gotQueue = queue
		ch := make(chan []byte, 2)
		ch <- []byte("not json")
		ch <- body
		close(ch)
		return ch, nil
	}}

	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetErr(&out)

	require.NoError(t, tailEvents(context.Background(), c, broker, "audit"))
	assert.Equal(t, "audit", gotQueue)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "skipping undecodable message")
	assert.Contains(t, lines[1], "2026-01-02T03:04:05Z import.completed")
	assert.Contains(t, lines[1], "store=3")
}
