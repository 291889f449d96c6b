package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/integrity"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/store/backend"
)

func TestSeed_CreatesConsistentData(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"--db-driver", "sqlite", "--data-path", dir, "--env-file", "none", "--users", "2", "--bugs", "4", "--tags", "2"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "0 violations")

	s, err := backend.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DataPath: dir}, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	report, err := integrity.Check(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 8, report.Bugs)
	assert.Equal(t, 4, report.Tags)
}

func TestSeed_TooManyTags(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"--tags", "99", "--data-path", t.TempDir()})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most")
}
