package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ammCore/internal/storage"
)

func runCLI(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), "poolctl %v: %s", args, out.String())
	return out.Bytes()
}

func TestPoolctlEndToEnd(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	journal := filepath.Join(dir, "ops.jsonl")
	common := []string{"--pool", "demo", "--state-dir", filepath.Join(dir, "pools"), "--journal", journal, "--log-level", "error"}
	with := func(args ...string) []string { return append(args, common...) }

	runCLI(t, with("init", "--fee-numerator", "3", "--fee-denominator", "1000")...)
	runCLI(t, with("fund", "--account", "alice", "--asset", "asset0", "--amount", "1000")...)
	runCLI(t, with("fund", "--account", "alice", "--asset", "1", "--amount", "2000")...)
	runCLI(t, with("fund", "--account", "bob", "--asset", "0", "--amount", "100")...)

	var added struct {
		SharesMinted uint64 `json:"shares_minted"`
	}
	require.NoError(t, json.Unmarshal(runCLI(t, with("add", "--account", "alice", "--amount0", "1000", "--amount1", "2000")...), &added))
	require.Equal(t, uint64(1500), added.SharesMinted)

	var quoted struct {
		AmountOut   uint64 `json:"amount_out"`
		PriceImpact string `json:"price_impact"`
	}
	require.NoError(t, json.Unmarshal(runCLI(t, with("quote", "--amount-in", "100")...), &quoted))
	require.Equal(t, uint64(182), quoted.AmountOut)
	require.Equal(t, "0.09", quoted.PriceImpact)

	var swapped struct {
		AmountOut uint64 `json:"amount_out"`
	}
	require.NoError(t, json.Unmarshal(runCLI(t, with("swap", "--account", "bob", "--amount-in", "100", "--min-out", "180")...), &swapped))
	require.Equal(t, uint64(182), swapped.AmountOut)

	var shown struct {
		Sequence  uint64 `json:"sequence"`
		SpotPrice string `json:"spot_price"`
		PoolShare string `json:"pool_share"`
	}
	require.NoError(t, json.Unmarshal(runCLI(t, with("show", "--account", "alice")...), &shown))
	require.Equal(t, uint64(6), shown.Sequence)
	require.Equal(t, "1", shown.PoolShare)
	require.NotEmpty(t, shown.SpotPrice)

	records, err := storage.ReadJournal(journal)
	require.NoError(t, err)
	require.Len(t, records, 6)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poolctl.log")
	logger, err := newLogger("info", path)
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)

	_, err = newLogger("loud", "")
	require.Error(t, err)
}
