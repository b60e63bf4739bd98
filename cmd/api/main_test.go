package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "migrate", "render", "client"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.Flags().Lookup("addr"))
}

func TestRenderCommandWritesPDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"id":"r1","title":"Pendulum Period","studentName":"Ada"}`), 0o644))

	root := rootCmd()
	root.SetArgs([]string{"render", "--in", in, "--renderer", "basic", "--log-level", "error"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "pendulum-period.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestClientOfflineEditAndSubmit(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "local.db")
	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root := rootCmd()
		root.SetOut(&out)
		root.SetArgs(append([]string{"client", "--offline", "--local-db", db, "--log-level", "error"}, args...))
		require.NoError(t, root.Execute())
		return out.String()
	}

	run("set", "title", "Boiling Point")
	run("set", "studentName", "Ada Park")
	run("set", "date", "2026-03-01")
	status := run("status")
	assert.Contains(t, status, "status:  Draft")

	out := run("submit", "--out-dir", dir)
	assert.Contains(t, out, "boiling-point.pdf")
	assert.Contains(t, out, "status:  Submitted")
	_, err := os.Stat(filepath.Join(dir, "boiling-point.pdf"))
	require.NoError(t, err)

	assert.Contains(t, run("status"), "status:  Submitted")
}
