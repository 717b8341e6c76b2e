package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/pkg/client"
)

// execute runs a fresh root command with args and captures both streams.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// apiServer starts a stub API server and returns the --server flag pair.
func apiServer(t *testing.T, handler http.Handler) []string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return []string{"--server", srv.URL}
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "cpda", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"submit", "status", "results", "cliffs", "summary", "export", "compound", "metrics", "migrate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	for _, name := range []string{"config", "log-level", "output", "verbose", "timeout", "server", "api-key"} {
		assert.NotNil(t, pf.Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "v", pf.Lookup("verbose").Shorthand)
	assert.Equal(t, "o", pf.Lookup("output").Shorthand)
	assert.Equal(t, "text", pf.Lookup("output").DefValue)
	assert.Equal(t, "30s", pf.Lookup("timeout").DefValue)
}

func TestVersionCmd_Output(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cpda "+Version)
	assert.Contains(t, out, "commit: "+GitCommit)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, _, err := execute(t, "-o", "yaml", "status", "j1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", "/nonexistent/cpda.yaml", "status", "j1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestGetCLIContext_NotInitialized(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestServerAddr(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: 9090}}

	assert.Equal(t, "http://localhost:9090", serverAddr(cfg, &RootOptions{}))
	assert.Equal(t, "http://api:1", serverAddr(cfg, &RootOptions{ServerAddr: "http://api:1"}))

	cfg.Server.Host = "10.0.0.5"
	assert.Equal(t, "http://10.0.0.5:9090", serverAddr(cfg, &RootOptions{}))
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, nil)
	assert.Empty(t, buf.String())

	PrintError(cmd, assert.AnError)
	assert.Equal(t, "Error: "+assert.AnError.Error()+"\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"ID", "STATUS"}, [][]string{{"job-1", "completed"}, {"j2"}}))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	var jobLine, shortLine string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "job-1"):
			jobLine = line
		case strings.Contains(line, "j2"):
			shortLine = line
		}
	}
	assert.Contains(t, jobLine, "completed")
	require.NotEmpty(t, shortLine)
	assert.NotContains(t, shortLine, "completed")
	assert.Less(t, strings.Index(out, "job-1"), strings.Index(out, "j2"))

	buf.Reset()
	require.NoError(t, writeTable(&buf, nil, nil))
	assert.Empty(t, buf.String())
}

func TestColorizeStatus(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })

	color.NoColor = true
	assert.Equal(t, "completed", colorizeStatus(client.JobCompleted))

	color.NoColor = false
	assert.Contains(t, colorizeStatus(client.JobFailed), "\x1b[31m")
	assert.Contains(t, colorizeStatus(client.JobCompleted), "\x1b[32m")
	assert.Equal(t, client.JobPending, colorizeStatus(client.JobPending))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}

//Personal.AI order the ending
