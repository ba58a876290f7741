package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/types"
)

func partitions() []identity.Partition {
	return []identity.Partition{
		{Source: types.VixenID, Store: "S1", Start: 1, End: 999},
		{Source: types.OSSID, Store: "S1", Start: 1000, End: 1999},
		{Source: types.VixenID, Store: "S2", Start: 2000, End: 2002},
	}
}

func TestNewSet(t *testing.T) {
	set, err := identity.NewSet(partitions()...)
	require.NoError(t, err)

	p, ok := set.Get(types.OSSID, "S1")
	require.True(t, ok)
	assert.Equal(t, int64(1000), p.Size())
	assert.True(t, p.Contains(1999))
	assert.False(t, p.Contains(2000))

	_, ok = set.Get(types.CXSID, "S1")
	assert.False(t, ok)
	assert.Len(t, set.List(), 3)
}

func TestNewSetRejects(t *testing.T) {
	tests := []struct {
		name  string
		parts []identity.Partition
		msg   string
	}{
		{"overlap", []identity.Partition{
			{Source: types.VixenID, Store: "S1", Start: 1, End: 100},
			{Source: types.OSSID, Store: "S2", Start: 100, End: 200},
		}, "overlaps"},
		{"duplicate owner", []identity.Partition{
			{Source: types.VixenID, Store: "S1", Start: 1, End: 10},
			{Source: types.VixenID, Store: "S1", Start: 20, End: 30},
		}, "duplicate"},
		{"inverted", []identity.Partition{{Source: types.VixenID, Store: "S1", Start: 10, End: 1}}, "end"},
		{"zero start", []identity.Partition{{Source: types.VixenID, Store: "S1", Start: 0, End: 1}}, "positive"},
		{"missing store", []identity.Partition{{Source: types.VixenID, Start: 1, End: 2}}, "store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := identity.NewSet(tt.parts...)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRequire(t *testing.T) {
	set, err := identity.NewSet(partitions()...)
	require.NoError(t, err)

	assert.NoError(t, set.Require("S1", []types.SourceID{types.VixenID, types.OSSID}))

	err = set.Require("S2", []types.SourceID{types.VixenID, types.OSSID})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "OSS/S2")
}

func TestAllocator(t *testing.T) {
	set, err := identity.NewSet(partitions()...)
	require.NoError(t, err)

	a := identity.NewAllocator(set, "S2", nil)
	for _, want := range []int64{2000, 2001, 2002} {
		got, err := a.Next(types.VixenID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = a.Next(types.VixenID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPartitionExhausted)
	assert.True(t, errors.IsFatal(err))

	_, err = a.Next(types.OSSID)
	assert.True(t, errors.IsConfiguration(err))
}

func TestAllocatorResumesFromCursor(t *testing.T) {
	set, err := identity.NewSet(partitions()...)
	require.NoError(t, err)

	cursors := map[identity.Key]int64{
		{Source: types.OSSID, Store: "S1"}:   1041,
		{Source: types.VixenID, Store: "S2"}: 2001,
	}
	a := identity.NewAllocator(set, "S1", cursors)

	got, err := a.Next(types.OSSID)
	require.NoError(t, err)
	assert.Equal(t, int64(1042), got)

	got, err = a.Next(types.VixenID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	assert.Equal(t, map[identity.Key]int64{
		{Source: types.OSSID, Store: "S1"}:   1042,
		{Source: types.VixenID, Store: "S1"}: 1,
	}, a.Cursors())
}

func TestDeterministicUUIDs(t *testing.T) {
	a := identity.CustomerUUID(identity.DefaultNamespace, types.OSSID, "S1", 1000)
	b := identity.CustomerUUID(identity.DefaultNamespace, types.OSSID, "S1", 1000)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, identity.CustomerUUID(identity.DefaultNamespace, types.OSSID, "S1", 1001))
	assert.Len(t, a, 36)
	assert.Equal(t, byte('5'), a[14])

	assert.Equal(t,
		identity.SaleUUID(identity.DefaultNamespace, "S1", "100"),
		identity.SaleUUID(identity.DefaultNamespace, "S1", "100"))
	assert.NotEqual(t,
		identity.SaleUUID(identity.DefaultNamespace, "S1", "100"),
		identity.SaleUUID(identity.DefaultNamespace, "S2", "100"))

	ns, err := identity.ParseNamespace("")
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultNamespace, ns)
	_, err = identity.ParseNamespace("not-a-uuid")
	assert.Error(t, err)
}
