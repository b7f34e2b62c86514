package exthashmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, m *ExtHashMap) (keys []string, values map[string][]byte) {
	values = make(map[string][]byte)
	iter := m.Iter()
	for iter.HasNext() {
		key, value, err := iter.Next()
		require.NoError(t, err, "gets next record")
		keys = append(keys, string(key))
		values[string(key)] = value
	}

	_, _, err := iter.Next()
	assert.True(t, errors.Is(err, NoRecordFound{}), "exhausted iterator")

	return
}

func TestExtHashMap_Iter(t *testing.T) {
	t.Run("visits every record exactly once", func(t *testing.T) {
		// Prepare
		conf := DefaultConfig()
		conf.BucketCapacity = 4
		conf.LowWaterMark = 1
		conf.MaxPageDepth = 2
		m := newTestMap(t, conf)
		n := 1000
		for i := 0; i < n; i++ {
			require.NoError(t, m.Insert(intKey(i), intValue(i)), "inserts %d", i)
		}

		// Execute
		keys, values := collect(t, m)

		// Check
		assert.Len(t, keys, n, "one visit per record")
		assert.Len(t, values, n, "no record visited twice")
		for i := 0; i < n; i++ {
			assert.Equal(t, intValue(i), values[string(intKey(i))], "value of %d", i)
		}
	})

	t.Run("gives the same order twice without mutation", func(t *testing.T) {
		// Prepare
		m := newTestMap(t, smallConfig())
		for d := 0; d < 40; d++ {
			require.NoError(t, m.Insert([]byte{byte(d * 5)}, []byte{byte(d)}), "inserts %d", d)
		}

		// Execute
		first, _ := collect(t, m)
		second, _ := collect(t, m)

		// Check
		assert.Equal(t, first, second, "same order")
	})

	t.Run("iterates an empty map", func(t *testing.T) {
		m := newTestMap(t, smallConfig())
		assert.False(t, m.Iter().HasNext(), "nothing to visit")
	})

	t.Run("fails fast after a modification", func(t *testing.T) {
		// Prepare
		m := newTestMap(t, smallConfig())
		require.NoError(t, m.Insert([]byte{1}, []byte{1}), "inserts key")
		iter := m.Iter()

		// Execute
		require.NoError(t, m.Insert([]byte{2}, []byte{2}), "inserts another key")

		// Check
		assert.True(t, iter.HasNext(), "reports pending error")
		_, _, err := iter.Next()
		assert.True(t, errors.Is(err, ConcurrentModification{}), "concurrent modification")
	})
}
