// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kairn-ai/kairn/internal/store/sqlite"
	kairnerr "github.com/kairn-ai/kairn/pkg/errors"
)

// execute runs the root command against an isolated workspace and returns
// stdout. Logs are discarded.
func execute(t *testing.T, ws string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KAIRN_WORKSPACE", ws)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--workspace", ws}, args...))

	err := root.Execute()
	return buf.String(), err
}

// executeJSON runs a command that must succeed and decodes its JSON output.
func executeJSON(t *testing.T, ws string, args ...string) map[string]any {
	t.Helper()
	out, err := execute(t, ws, args...)
	require.NoError(t, err, out)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "1.0", body["_v"])
	return body
}

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)
	for _, sub := range []string{"kairn", "init", "learn", "recall", "crossref", "context", "related", "node", "idea", "project", "doctor", "version"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "workspace", "verbose", "format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "c", root.PersistentFlags().Lookup("config").Shorthand)
	assert.Equal(t, "v", root.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestVersionCommand(t *testing.T) {
	body := executeJSON(t, t.TempDir(), "version")
	assert.Equal(t, "dev", body["version"])
	assert.Equal(t, "unknown", body["commit"])
	assert.Equal(t, "1.0", body["output_version"])
	assert.Equal(t, float64(sqlite.LatestSchemaVersion()), body["schema_version"])
}

func TestVersionCommand_Short(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestUnknownFormat(t *testing.T) {
	_, err := execute(t, t.TempDir(), "--format", "xml", "status")
	require.Error(t, err)
	assert.Equal(t, kairnerr.ExitInvalidInput, kairnerr.ExitCode(err))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, t.TempDir(), "--config", "/nonexistent/kairn.yaml", "status")
	require.Error(t, err)
	assert.True(t, kairnerr.HasCode(err, kairnerr.CodeConfigLoadReadFailure))
}

func TestInit_WritesConfigOnce(t *testing.T) {
	ws := t.TempDir()

	body := executeJSON(t, ws, "init")
	assert.Equal(t, true, body["config_created"])
	assert.FileExists(t, body["config"].(string))
	assert.FileExists(t, body["database"].(string))

	body = executeJSON(t, ws, "init")
	assert.Equal(t, false, body["config_created"])
}

func TestStatus_YAML(t *testing.T) {
	ws := t.TempDir()
	out, err := execute(t, ws, "--format", "yaml", "status")
	require.NoError(t, err)

	var body struct {
		Version string `yaml:"_v"`
		Stats   struct {
			Nodes       int64 `yaml:"nodes"`
			Experiences int64 `yaml:"experiences"`
		} `yaml:"stats"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "1.0", body.Version)
	assert.Zero(t, body.Stats.Nodes)
	assert.Zero(t, body.Stats.Experiences)
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, formatText, payload{
		"_v":    "1.0",
		"name":  "connection pooling",
		"tags":  []string{"db", "perf"},
		"nodes": []nodeView{},
		"stats": map[string]int{"nodes": 3},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "connection pooling")
	assert.Contains(t, out, "db, perf")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, out, "3")
	assert.NotContains(t, out, "1.0", "the version key is not rendered as text")
}
