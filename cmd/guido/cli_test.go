package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-guido/pkg/events"
	"github.com/teslashibe/go-guido/pkg/journal"
)

func executeCLI(t *testing.T, ctx context.Context, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestClassifyCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, context.Background(), nil, "classify", "please", "give", "me", "the", "hammer", "now")
	require.NoError(t, err)
	assert.Equal(t, "kind: tool_request\ntool: hammer\n", stdout)

	stdout, _, err = executeCLI(t, context.Background(), nil, "classify", "--mode", "dormant", "hey guido")
	require.NoError(t, err)
	assert.Equal(t, "kind: activation\n", stdout)

	_, _, err = executeCLI(t, context.Background(), nil, "classify", "--mode", "asleep", "hi")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestProceduresCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, context.Background(), nil, "procedures")
	require.NoError(t, err)
	assert.Contains(t, stdout, "oil_change")
	assert.Contains(t, stdout, "How to Change a Car Tire (9 steps)")

	stdout, _, err = executeCLI(t, context.Background(), nil, "procedures", "tire_change")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Tools: jack, lug wrench, wheel wedges, spare tire")
	assert.Contains(t, stdout, " 9. Stow all equipment and have spare tire repaired")

	_, _, err = executeCLI(t, context.Background(), nil, "procedures", "brakes")
	assert.ErrorContains(t, err, "unknown procedure")
}

func TestRunTypedConversation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stdin := strings.NewReader("guido wake up\nwhat time is it\ngo to sleep\n")
	stdout, _, err := executeCLI(t, ctx, stdin, "run", "--log-level", "error", "--env-file", "")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Guido: Voice system ready.")
	assert.Contains(t, stdout, "Guido: I am activated sir! How can I assist you today?")
	assert.Contains(t, stdout, "Guido: The current time is ")
	assert.Contains(t, stdout, "Guido: Deactivating now. Goodbye!")
	assert.True(t, strings.HasSuffix(stdout, "Guido: Shutting down Guido system. Goodbye!\n"), stdout)
}

func TestRunJournalsFromFirstEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guido.db")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stdin := strings.NewReader("hey guido\n")
	_, _, err := executeCLI(t, ctx, stdin, "run", "--log-level", "error", "--env-file", "", "--journal", path)
	require.NoError(t, err)

	j, err := journal.Open(path, nil)
	require.NoError(t, err)
	defer j.Close()

	recorded, err := j.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.NotEmpty(t, recorded)
	assert.Equal(t, events.KindReady, recorded[0].Kind)
	assert.Equal(t, events.KindShutdown, recorded[len(recorded)-1].Kind)

	counts, err := j.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[events.KindActivated])
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, _, err := executeCLI(t, context.Background(), nil, "run", "--robot", "teleport", "--env-file", "")
	assert.ErrorContains(t, err, "robot.backend")
}
