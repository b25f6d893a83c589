package rhhash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtn-agent/custodytable/pkg/rhhash"
)

func TestNewRejectsBadCapacity(t *testing.T) {
	t.Parallel()

	_, err := rhhash.New(0)
	require.ErrorIs(t, err, rhhash.ErrParam)

	_, err = rhhash.New(-1)
	require.ErrorIs(t, err, rhhash.ErrParam)
}

// Scenario 1: Basic FIFO.
func TestScenarioBasicFIFO(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 10}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 2, SID: 20}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 3, SID: 30}, false))

	b, err := table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 1, SID: 10}, b)

	removed, err := table.Remove(1)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 1, SID: 10}, removed)

	b, err = table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 2, SID: 20}, b)

	require.Equal(t, 2, table.Count())
}

// Scenario 2: collision chain, no displacement. CIDs 1, 5, 9 all hash to
// slot 1 mod 4. Removing the middle entry compacts the tail into it.
func TestScenarioCollisionChainNoDisplacement(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 100}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 5, SID: 500}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 9, SID: 900}, false))

	removed, err := table.Remove(5)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 5, SID: 500}, removed)

	require.Equal(t, 2, table.Count())

	// CID 9 must still be reachable: it was tail-compacted into CID 5's
	// old slot without changing its home bucket.
	removed, err = table.Remove(9)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 9, SID: 900}, removed)

	removed, err = table.Remove(1)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 1, SID: 100}, removed)

	require.Equal(t, 0, table.Count())
}

// Scenario 3: Robin-Hood displacement. CID 1 occupies slot 1 (home). CID 5
// also hashes to 1 and becomes a tail node at slot 2. CID 2 hashes to slot
// 2, which is occupied by the CID-5 interloper, triggering displacement.
func TestScenarioRobinHoodDisplacement(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 100}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 5, SID: 500}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 2, SID: 200}, false))

	b, err := table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 1, SID: 100}, b)

	require.Equal(t, 3, table.Count())

	removed, err := table.Remove(2)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 2, SID: 200}, removed)

	removed, err = table.Remove(5)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 5, SID: 500}, removed)

	removed, err = table.Remove(1)
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 1, SID: 100}, removed)
}

// Scenario 4: overwrite updates age.
func TestScenarioOverwriteUpdatesAge(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(8)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 10}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 2, SID: 20}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 3, SID: 30}, false))

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 99}, true))

	b, err := table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 2, SID: 20}, b)

	removed, err := table.Remove(1)
	require.NoError(t, err)
	require.Equal(t, uint64(99), removed.SID)
}

// Scenario 5: duplicate without overwrite.
func TestScenarioDuplicateWithoutOverwrite(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(8)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 7, SID: 70}, false))

	err = table.Add(rhhash.Bundle{CID: 7, SID: 71}, false)
	require.ErrorIs(t, err, rhhash.ErrDuplicateCID)

	require.Equal(t, 1, table.Count())

	b, err := table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 7, SID: 70}, b)
}

// Scenario 6: full-table probe. Three CIDs all hashing to slot 0 fill an
// N=3 table; a fourth CID hashing to slot 0 finds nothing free.
func TestScenarioFullTableProbe(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(3)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 0, SID: 1}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 3, SID: 2}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 6, SID: 3}, false))

	require.Equal(t, 3, table.Count())
	require.ErrorIs(t, table.Available(0), rhhash.ErrTableFull)

	err = table.Add(rhhash.Bundle{CID: 9, SID: 4}, false)
	require.ErrorIs(t, err, rhhash.ErrTableFull)

	require.Equal(t, 3, table.Count())

	b, err := table.Peek()
	require.NoError(t, err)
	require.Equal(t, rhhash.Bundle{CID: 0, SID: 1}, b)
}

func TestRemoveFromEmptyTable(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	_, err = table.Remove(1)
	require.ErrorIs(t, err, rhhash.ErrCIDNotFound)
}

func TestPeekOnEmptyTable(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	_, err = table.Peek()
	require.ErrorIs(t, err, rhhash.ErrCIDNotFound)
}

func TestPeekIsIdempotent(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 10}, false))
	require.NoError(t, table.Add(rhhash.Bundle{CID: 2, SID: 20}, false))

	first, err := table.Peek()
	require.NoError(t, err)

	second, err := table.Peek()
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 2, table.Count())
}

func TestAddRejectsVacantSID(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(4)
	require.NoError(t, err)
	defer table.Close()

	require.Panics(t, func() {
		_ = table.Add(rhhash.Bundle{CID: 1, SID: rhhash.VacantSID}, false)
	})
}

func TestAvailableIgnoresCIDArgument(t *testing.T) {
	t.Parallel()

	table, err := rhhash.New(1)
	require.NoError(t, err)
	defer table.Close()

	require.NoError(t, table.Available(123))
	require.NoError(t, table.Available(999999))

	require.NoError(t, table.Add(rhhash.Bundle{CID: 1, SID: 10}, false))
	require.ErrorIs(t, table.Available(123), rhhash.ErrTableFull)
	require.ErrorIs(t, table.Available(999999), rhhash.ErrTableFull)
}
