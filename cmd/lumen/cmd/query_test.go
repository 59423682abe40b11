package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lumenerrors "github.com/lumenlauncher/lumen/internal/errors"
)

// withTestConfig points the engine at a minimal config file so test
// runs never read the user's ~/.lumen/config.yaml.
func withTestConfig(t *testing.T) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0o644))
	old := configPath
	configPath = p
	t.Cleanup(func() { configPath = old })
}

func TestQueryCmd_PrintsRankedMatches(t *testing.T) {
	withTestConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "calculator")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	cmd := NewQueryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"calc", "--path", dir})

	require.NoError(t, cmd.Execute())
	// The matched prefix may carry highlight styling; the unmatched
	// remainder is printed plain. Whether the session's completion or
	// the delivery is observed first, the result must be printed.
	assert.Contains(t, out.String(), "ulator")
}

func TestQueryCmd_NoMatches(t *testing.T) {
	withTestConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "calculator")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	cmd := NewQueryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"zzz", "--path", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "no matches")
}

func TestBuildEngine_RejectsUnknownMatcher(t *testing.T) {
	withTestConfig(t)
	t.Setenv("LUMEN_MATCHER", "levenshtein")

	_, err := buildEngine(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, lumenerrors.ErrCodeConfigInvalid, lumenerrors.GetCode(err))
}
