package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestCalcCommandPrintsPlainPost(t *testing.T) {
	t.Setenv("LIFEPATH_TELEGRAM_TOKEN", "")
	t.Setenv("LIFEPATH_TIMEZONE", "")
	t.Setenv("LIFEPATH_POST_AT", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"calc", "08/21/2025", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, cmd.Execute())

	assert.Equal(t,
		"Daily 7CatYear — August 21, 2025 (PDT)\n"+
			"URL: https://7catyear.com/?birthdate=08/21/2025\n"+
			"Life Path: 11 / 20\n"+
			"Secondary energy: 3\n",
		out.String())
}

func TestCalcCommandRejectsBadDate(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"calc", "2025-08-21", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestPrintNextUsesConfiguredZone(t *testing.T) {
	t.Setenv("LIFEPATH_TIMEZONE", "")
	t.Setenv("LIFEPATH_POST_AT", "")
	p := writeConfig(t, "schedule:\n  at: \"06:15\"\n  timezone: Asia/Tokyo\n")

	var out bytes.Buffer
	now := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC) // 09:00 JST
	require.NoError(t, printNext(&out, p, 2, now))
	assert.Equal(t,
		"Fri Aug 22 2025 06:15 JST  Life Path 3 / 21\n"+
			"Sat Aug 23 2025 06:15 JST  Life Path 4 / 22\n",
		out.String())
}

func TestPrintNextDisabled(t *testing.T) {
	p := writeConfig(t, "schedule:\n  enabled: false\n")
	var out bytes.Buffer
	require.NoError(t, printNext(&out, p, 2, time.Now()))
	assert.Equal(t, "schedule disabled\n", out.String())
}
