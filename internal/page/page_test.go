package page

import (
	"testing"

	"github.com/gostonefire/exthashmap/pagestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depths(m map[uint64]uint) func(uint64) uint {
	return func(id uint64) uint { return m[id] }
}

func TestNew(t *testing.T) {
	t.Run("creates a single slot page", func(t *testing.T) {
		// Execute
		p := New(7, 2)

		// Check
		assert.Equal(t, 1, p.Size(), "one slot")
		assert.Equal(t, uint(0), p.LocalDepth(), "local depth 0")
		assert.Equal(t, uint(2), p.DirectoryDepth(), "directory depth preserved")
		assert.Equal(t, uint64(7), p.BucketAt(p.SlotFor(0xff)), "every digest maps to the bucket")
	})
}

func TestPage_Double(t *testing.T) {
	t.Run("duplicates every reference into the new half", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.Double()
		p.Repoint(1, 1, 2)

		// Execute
		p.Double()

		// Check
		assert.Equal(t, 4, p.Size(), "size is 2^L_p")
		assert.Equal(t, uint(2), p.LocalDepth(), "local depth incremented")
		assert.Equal(t, []uint64{1, 2, 1, 2}, p.Image().Buckets, "references duplicated")
		assert.Equal(t, 2, p.SlotFor(0b1110), "slot from the two lowest bits")
	})
}

func TestPage_Halve(t *testing.T) {
	t.Run("halves when no bucket needs the top bit", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.Double()
		p.Repoint(1, 1, 2)
		p.Double()
		d := depths(map[uint64]uint{1: 1, 2: 1})

		// Execute
		err := p.Halve(d)

		// Check
		require.NoError(t, err, "halves")
		assert.Equal(t, 2, p.Size(), "size halved")
		assert.Equal(t, []uint64{1, 2}, p.Image().Buckets, "references kept")
	})

	t.Run("refuses when a bucket uses all bits", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.Double()
		p.Repoint(1, 1, 2)
		d := depths(map[uint64]uint{1: 1, 2: 1})

		// Execute
		err := p.Halve(d)

		// Check
		assert.Error(t, err, "bucket depth equals page depth")
		assert.Equal(t, 2, p.Size(), "unchanged")
	})

	t.Run("refuses at depth 0", func(t *testing.T) {
		assert.Error(t, New(1, 0).Halve(depths(nil)), "nothing to halve")
	})
}

func TestPage_Repoint(t *testing.T) {
	t.Run("repoints every slot sharing the signature", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.Double()
		p.Double()
		p.Double()

		// Execute
		p.Repoint(0b01, 2, 9)

		// Check
		assert.Equal(t, []uint64{1, 9, 1, 1, 1, 9, 1, 1}, p.Image().Buckets, "slots 1 and 5 repointed")
	})
}

func TestPage_Distinct(t *testing.T) {
	t.Run("lists every bucket once", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.Double()
		p.Double()
		p.Repoint(0b1, 1, 2)
		p.Repoint(0b11, 2, 3)
		d := depths(map[uint64]uint{1: 1, 2: 2, 3: 2})

		// Execute
		ids := p.Distinct(d)

		// Check
		assert.Equal(t, []uint64{1, 2, 3}, ids, "distinct buckets")
	})
}

func TestPage_Image(t *testing.T) {
	t.Run("restores from its own image", func(t *testing.T) {
		// Prepare
		p := New(4, 3)
		p.Double()
		p.Repoint(1, 1, 5)

		// Execute
		r, err := FromImage(p.Image())

		// Check
		require.NoError(t, err, "restores")
		assert.Equal(t, p.Image(), r.Image(), "same image")
	})

	t.Run("rejects a slot array of wrong size", func(t *testing.T) {
		_, err := FromImage(pagestore.PageImage{LocalDepth: 2, Buckets: []uint64{1, 2, 3}})
		assert.Error(t, err, "three slots is not 2^2")
	})
}

func TestPage_BucketAt(t *testing.T) {
	t.Run("panics outside the page", func(t *testing.T) {
		assert.Panics(t, func() { New(1, 0).BucketAt(1) }, "out of range is an invariant violation")
	})
}

func TestPage_Clone(t *testing.T) {
	t.Run("clone is independent", func(t *testing.T) {
		// Prepare
		p := New(1, 0)
		p.AddCount(3)

		// Execute
		c := p.Clone()
		c.Double()
		c.Repoint(1, 1, 2)

		// Check
		assert.Equal(t, 1, p.Size(), "original size unchanged")
		assert.Equal(t, 3, c.Count(), "count copied")
	})
}
