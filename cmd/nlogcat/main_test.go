package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlogsink/serializer/container"
	"github.com/philipp01105/nlogsink/serializer/formats"
)

func newTestEnv() *env {
	return &env{fs: afero.NewMemMapFs(), registry: formats.NewRegistry()}
}

func run(t *testing.T, e *env, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(e)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFormats(t *testing.T) {
	out, err := run(t, newTestEnv(), "", "formats")
	require.NoError(t, err)

	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	assert.Equal(t, [][]string{
		{"NAME", "REOPEN"},
		{"container", "false"},
		{"json_lines", "true"},
		{"text", "true"},
	}, rows)
}

func TestWriteThenCat(t *testing.T) {
	for _, format := range []string{"text", "json_lines", "container"} {
		t.Run(format, func(t *testing.T) {
			e := newTestEnv()
			_, err := run(t, e, "hello\n\nworld\n", "write", "--file", "/logs/app.log", "--format", format)
			require.NoError(t, err)

			out, err := run(t, e, "", "cat", "/logs/app.log")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasSuffix(lines[0], "[INFO] hello"), lines[0])
			assert.True(t, strings.HasSuffix(lines[1], "[INFO] world"), lines[1])
		})
	}
}

func TestCat_Header(t *testing.T) {
	e := newTestEnv()
	_, err := run(t, e, "one\n", "write", "--file", "/logs/app.bin", "--format", "container")
	require.NoError(t, err)

	out, err := run(t, e, "", "cat", "--header", "/logs/app.bin")
	require.NoError(t, err)
	first := strings.SplitN(out, "\n", 2)[0]
	assert.True(t, strings.HasPrefix(first, "# /logs/app.bin format=container version=1 id="), first)
	assert.Contains(t, first, "blocks=1 events=1")
}

func TestCat_LevelFilterAndJSONOutput(t *testing.T) {
	e := newTestEnv()
	_, err := run(t, e, "routine\n", "write", "--file", "/logs/app.log", "--format", "json_lines")
	require.NoError(t, err)
	// A second run reopens the same file.
	_, err = run(t, e, "disk almost full\n", "write", "--file", "/logs/app.log", "--format", "json_lines", "--level", "warn")
	require.NoError(t, err)

	out, err := run(t, e, "", "cat", "--header", "/logs/app.log")
	require.NoError(t, err)
	assert.Contains(t, out, "reopens=1 events=2")

	out, err = run(t, e, "", "cat", "--level", "warn", "--output", "json", "/logs/app.log")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"WARN"`)
	assert.Contains(t, lines[0], `"message":"disk almost full"`)
}

func TestWrite_FromConfigFile(t *testing.T) {
	e := newTestEnv()
	require.NoError(t, afero.WriteFile(e.fs, "/etc/nlogsink.yaml", []byte(`
filename: /logs/cfg.log
format: json_lines
layout: json
name: ingest
`), 0644))

	_, err := run(t, e, "from config\n", "write", "--config", "/etc/nlogsink.yaml")
	require.NoError(t, err)

	out, err := run(t, e, "", "cat", "--output", "text", "/logs/cfg.log")
	require.NoError(t, err)
	assert.Contains(t, out, "[INFO] ingest - from config")
}

func TestCat_Errors(t *testing.T) {
	e := newTestEnv()
	_, err := run(t, e, "", "cat", "/missing.log")
	assert.Error(t, err)

	_, err = run(t, e, "x\n", "write", "--file", "/logs/c.bin", "--format", "container")
	require.NoError(t, err)
	data, err := afero.ReadFile(e.fs, "/logs/c.bin")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(e.fs, "/logs/c.bin", data[:len(data)-1], 0644))

	_, err = run(t, e, "", "cat", "/logs/c.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, container.ErrCorrupt), "%v", err)

	_, err = run(t, e, "", "cat", "--format", "parquet", "/logs/c.bin")
	assert.Error(t, err)

	_, err = run(t, e, "", "cat", "--level", "loud", "/logs/c.bin", "--format", "text")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "container", detectFormat(append(container.Magic[:], 1, 0)))
	assert.Equal(t, "json_lines", detectFormat([]byte("\n{\"kind\":\"header\",\"format\":\"json_lines\"}\n")))
	assert.Equal(t, "text", detectFormat([]byte("2026-01-01T00:00:00Z [INFO] hi\n")))
	assert.Equal(t, "text", detectFormat(nil))
}
