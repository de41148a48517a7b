package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/drcal/internal/adapters/http/api"
	service "github.com/okian/drcal/internal/app"
	"github.com/okian/drcal/internal/domain/model"
	"github.com/okian/drcal/internal/domain/schedule"
	"github.com/okian/drcal/pkg/logger"
)

func newCalendar(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New()
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, server string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--server", server}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
		expectError    bool
	}{
		{name: "help flag", args: []string{"--help"}, expectedOutput: "talks to a DR test calendar"},
		{name: "subcommands listed", args: []string{"--help"}, expectedOutput: "smoke"},
		{name: "invalid flag", args: []string{"--invalid-flag"}, expectedOutput: "unknown flag: --invalid-flag", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), tt.expectedOutput)
		})
	}
}

func TestEventCommands(t *testing.T) {
	srv := newCalendar(t)

	out, _, err := execute(t, srv.URL, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.NotContains(t, out, "Auto Scheduled DR Test")

	out, _, err = execute(t, srv.URL, "auto")
	require.NoError(t, err)
	assert.Contains(t, out, "Auto Scheduled DR Test")
	assert.Contains(t, out, "Type:        auto")

	start := time.Now().Add(14 * 24 * time.Hour).Format(model.TimeLayout)
	out, _, err = execute(t, srv.URL, "schedule", "--title", "Storage failover", "--start", start, "--duration", "3h")
	require.NoError(t, err)
	assert.Contains(t, out, "ID:          2")
	assert.Contains(t, out, "Disaster Recovery Test: Storage failover")

	out, _, err = execute(t, srv.URL, "get", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Start:       "+start)

	out, _, err = execute(t, srv.URL, "update", "2", "--title", "Storage failover v2")
	require.NoError(t, err)
	assert.Contains(t, out, "Title:       Storage failover v2")

	_, _, err = execute(t, srv.URL, "update", "2")
	assert.ErrorContains(t, err, "nothing to update")

	out, _, err = execute(t, srv.URL, "upcoming")
	require.NoError(t, err)
	assert.Contains(t, out, "Storage failover v2")
	assert.Contains(t, out, "13")

	out, _, err = execute(t, srv.URL, "list")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))

	out, _, err = execute(t, srv.URL, "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted event 2")

	_, _, err = execute(t, srv.URL, "get", "2")
	assert.ErrorContains(t, err, "404")

	_, _, err = execute(t, srv.URL, "get", "abc")
	assert.ErrorContains(t, err, "invalid event id")
}

func TestCreateRejected(t *testing.T) {
	srv := newCalendar(t)

	_, errOut, err := execute(t, srv.URL, "create",
		"--title", "AB",
		"--start", "2024-01-01T10:00",
		"--end", "2024-01-01T09:00",
		"--description", "short")
	require.Error(t, err)
	for _, msg := range []string{
		schedule.MsgTitleTooShort,
		schedule.MsgStartInPast,
		schedule.MsgEndBeforeStart,
		schedule.MsgDescriptionTooShort,
	} {
		assert.Contains(t, errOut, msg)
	}
}

func TestScheduleBadStart(t *testing.T) {
	srv := newCalendar(t)

	_, _, err := execute(t, srv.URL, "schedule", "--title", "Anything", "--start", "tomorrow")
	assert.ErrorContains(t, err, "invalid --start")
}

func TestSmokeCommand(t *testing.T) {
	srv := newCalendar(t)

	out, _, err := execute(t, srv.URL, "smoke")
	require.NoError(t, err)
	assert.Contains(t, out, "all 9 checks passed")
	assert.Contains(t, out, "ok   6. reject invalid event: 4 errors reported")
}

func TestSmokeCommandUnreachable(t *testing.T) {
	srv := newCalendar(t)
	srv.Close()

	out, _, err := execute(t, srv.URL, "smoke", "--timeout", "1s")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL 1. list events")
}

func TestSeedCommand(t *testing.T) {
	srv := newCalendar(t)

	out, _, err := execute(t, srv.URL, "seed", "--count", "6", "--workers", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "created 6, rejected 0, failed 0")

	out, _, err = execute(t, srv.URL, "list")
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(out, "\n"))
}

func TestServe(t *testing.T) {
	srv := newCalendar(t)
	require.NoError(t, logger.Init(logger.WithOutput(io.Discard)))
	opts := &globalOptions{server: srv.URL, timeout: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := serve(ctx, "127.0.0.1:0", opts.client(), nopLogger())
	assert.NoError(t, err)
}

func nopLogger() logger.Logger { return logger.NewNop() }
