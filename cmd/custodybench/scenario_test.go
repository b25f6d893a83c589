package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtn-agent/custodytable/pkg/rhhash"
)

func mustNewTable(t *testing.T, capacity int) *rhhash.Table {
	t.Helper()

	table, err := rhhash.New(capacity)
	require.NoError(t, err)

	return table
}

func TestLoadScenarioParsesJSONC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.jsonc")

	content := `{
  "capacity": 128,
  "seed": 7,
  // weights need not sum to 100; they're normalized
  "addWeight": 70,
  "removeWeight": 25,
  "peekWeight": 5,
  "ops": 1000,
}`

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := loadScenario(path)
	require.NoError(t, err)
	require.Equal(t, 128, s.Capacity)
	require.Equal(t, uint64(7), s.Seed)
	require.Equal(t, 70.0, s.AddWeight)
	require.Equal(t, 1000, s.Ops)
}

func TestLoadScenarioRejectsBadCapacity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.jsonc")

	require.NoError(t, os.WriteFile(path, []byte(`{"capacity": 0, "ops": 10, "addWeight": 1}`), 0o600))

	_, err := loadScenario(path)
	require.Error(t, err)
}

func TestLoadScenarioRejectsZeroWeights(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.jsonc")

	require.NoError(t, os.WriteFile(path, []byte(`{"capacity": 10, "ops": 10}`), 0o600))

	_, err := loadScenario(path)
	require.Error(t, err)
}

func TestRunOpMixStaysWithinCapacity(t *testing.T) {
	t.Parallel()

	s := scenario{
		Capacity:     16,
		Seed:         42,
		AddWeight:    70,
		RemoveWeight: 25,
		PeekWeight:   5,
		Ops:          5000,
	}

	table := mustNewTable(t, s.Capacity)
	defer table.Close()

	report := runOpMix(table, s)

	require.LessOrEqual(t, report.FinalCount, s.Capacity)
	require.Equal(t, table.Count(), report.FinalCount)
	require.Equal(t, s.Ops, report.Adds+report.Removes+report.Peeks)
}
