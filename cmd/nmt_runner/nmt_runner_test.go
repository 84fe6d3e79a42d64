package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/nmt_runner"
)

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := resolveConfig("", nmt_runner.DEFAULT_STEPS, false)
	require.NoError(t, err)
	assert.Equal(t, nmt_runner.DEFAULT_STEPS, cfg.Train.MaxStep)
}

func TestResolveConfig_EnvStepsKept(t *testing.T) {
	t.Setenv("NMT_TRAIN_MAX_STEP", "200")
	cfg, err := resolveConfig("", nmt_runner.DEFAULT_STEPS, false)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Train.MaxStep)
}

func TestResolveConfig_FileStepsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yml")
	require.NoError(t, os.WriteFile(path, []byte("train:\n  max_step: 300\n"),
		0644))
	cfg, err := resolveConfig(path, nmt_runner.DEFAULT_STEPS, false)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Train.MaxStep)
}

func TestResolveConfig_ExplicitStepsWin(t *testing.T) {
	t.Setenv("NMT_TRAIN_MAX_STEP", "200")
	cfg, err := resolveConfig("", 50, true)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Train.MaxStep)

	_, err = resolveConfig("", 0, true)
	assert.EqualError(t, err, "train.max_step must be positive")
}

func TestRootCmd_Args(t *testing.T) {
	assert.NoError(t, rootCmd.Args(rootCmd, []string{"export-csv"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"evaluate"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"train", "export"}))
}
