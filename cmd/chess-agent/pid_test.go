package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagePIDFile_WritesAndRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")

	cleanup, err := managePIDFile(path, true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestManagePIDFile_SecondLockFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")

	cleanup, err := managePIDFile(path, true)
	require.NoError(t, err)
	defer cleanup()

	_, err = managePIDFile(path, true)
	assert.Error(t, err)
}

func TestManagePIDFile_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	_, err := managePIDFile(path, true)
	assert.ErrorContains(t, err, "corrupted")
}

func TestManagePIDFile_UnlockedOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.pid")
	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o644))

	cleanup, err := managePIDFile(path, false)
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))
}
