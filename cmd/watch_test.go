package cmd

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReportsMovedDefaults(t *testing.T) {
	te := setup(t, "replication {\n connect_retry = 15\n}")
	require.NoError(t, RunChange(te.args("-channel", "east", "-host", "db1", "-retry-count", "7")))
	te.reset()

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	require.NoError(t, fs.Parse(te.args()))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- watch(ctx, g, func() { close(ready) }) }()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}

	te.writeConfig(t, "replication {\n connect_retry = 30\n retry_count = 9\n ssl = false\n}")
	assert.Eventually(t, func() bool {
		out := te.out.String()
		return strings.Contains(out, "configuration reloaded from") &&
			strings.Contains(out, `channel "east": connect_retry now 30`)
	}, 5*time.Second, 20*time.Millisecond)

	out := te.out.String()
	assert.Contains(t, out, `channel "east": master_ssl_allowed now false`)
	assert.NotContains(t, out, "master_retry_count", "a SET field does not follow the option")

	cancel()
	require.NoError(t, <-done)
}
