package file

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gostonefire/exthashmap/internal/conf"
	"github.com/gostonefire/exthashmap/pagestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToBytes(t *testing.T) {
	t.Run("writes header and plain payload", func(t *testing.T) {
		// Prepare
		payload := []byte("some payload")

		// Execute
		buf := recordToBytes(conf.KindPage, payload, false)

		// Check
		assert.Equal(t, conf.RecordHeaderLength+len(payload), len(buf), "header plus payload")
		assert.Equal(t, conf.RecordMagic, string(buf[:4]), "magic")
		assert.Equal(t, conf.KindPage, buf[conf.KindOffset], "kind")
		assert.Equal(t, uint8(0), buf[conf.FlagsOffset], "not compressed")
		assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(buf[conf.PayloadLengthOffset:]), "length")

		back, err := bytesToRecord(conf.KindPage, buf)
		require.NoError(t, err, "reads record back")
		assert.Equal(t, payload, back, "same payload")
	})

	t.Run("compresses payloads that shrink", func(t *testing.T) {
		// Prepare
		payload := bytes.Repeat([]byte("abcdefgh"), 512)

		// Execute
		buf := recordToBytes(conf.KindBucket, payload, true)

		// Check
		assert.Equal(t, conf.FlagCompressed, buf[conf.FlagsOffset], "compressed")
		assert.Less(t, len(buf), len(payload), "smaller than payload")

		back, err := bytesToRecord(conf.KindBucket, buf)
		require.NoError(t, err, "reads record back")
		assert.Equal(t, payload, back, "same payload")
	})

	t.Run("stores incompressible payloads plain", func(t *testing.T) {
		buf := recordToBytes(conf.KindBucket, []byte{1, 2, 3}, true)
		assert.Equal(t, uint8(0), buf[conf.FlagsOffset], "not compressed")
	})
}

func TestBytesToRecord(t *testing.T) {
	valid := recordToBytes(conf.KindBucket, []byte("payload"), false)

	t.Run("detects corruption", func(t *testing.T) {
		// Prepare
		corrupt := make([]byte, len(valid))
		_ = copy(corrupt, valid)
		corrupt[len(corrupt)-1] ^= 0xff

		// Execute
		_, err := bytesToRecord(conf.KindBucket, corrupt)

		// Check
		assert.ErrorContains(t, err, "checksum", "payload bit flip")
	})

	t.Run("rejects wrong kind, magic and short records", func(t *testing.T) {
		_, err := bytesToRecord(conf.KindPage, valid)
		assert.ErrorContains(t, err, "kind", "wrong kind")

		bad := make([]byte, len(valid))
		_ = copy(bad, valid)
		bad[0] = 'X'
		_, err = bytesToRecord(conf.KindBucket, bad)
		assert.ErrorContains(t, err, "magic", "wrong magic")

		_, err = bytesToRecord(conf.KindBucket, valid[:10])
		assert.Error(t, err, "short record")

		_, err = bytesToRecord(conf.KindBucket, valid[:len(valid)-1])
		assert.ErrorContains(t, err, "length", "truncated payload")
	})
}

func TestDirectoryToBytes(t *testing.T) {
	t.Run("converts between bytes and DirectoryImage", func(t *testing.T) {
		// Prepare
		image := pagestore.DirectoryImage{
			HashAlgorithm:      1,
			DigestWidth:        64,
			BucketCapacity:     16,
			InitialGlobalDepth: 1,
			MaxPageDepth:       8,
			GlobalDepth:        2,
			NextID:             42,
			Pages:              []uint64{3, 3, 7, 9},
		}

		// Execute
		back, err := bytesToDirectory(directoryToBytes(image))

		// Check
		require.NoError(t, err, "decodes directory")
		assert.Equal(t, image, back, "same directory")
	})

	t.Run("fails on truncated payload", func(t *testing.T) {
		buf := directoryToBytes(pagestore.DirectoryImage{Pages: []uint64{1, 2}})
		_, err := bytesToDirectory(buf[:len(buf)-3])
		assert.Error(t, err, "truncated")
	})
}

func TestPageToBytes(t *testing.T) {
	t.Run("converts between bytes and PageImage", func(t *testing.T) {
		// Prepare
		image := pagestore.PageImage{LocalDepth: 1, DirectoryDepth: 3, Buckets: []uint64{11, 12}}

		// Execute
		back, err := bytesToPage(pageToBytes(image))

		// Check
		require.NoError(t, err, "decodes page")
		assert.Equal(t, image, back, "same page")
	})

	t.Run("fails on trailing bytes", func(t *testing.T) {
		buf := append(pageToBytes(pagestore.PageImage{Buckets: []uint64{1}}), 0)
		_, err := bytesToPage(buf)
		assert.ErrorContains(t, err, "trailing", "trailing byte")
	})
}

func TestBucketToBytes(t *testing.T) {
	t.Run("converts between bytes and BucketImage", func(t *testing.T) {
		// Prepare
		image := pagestore.BucketImage{
			LocalDepth: 2,
			Entries: []pagestore.Entry{
				{Key: []byte("key1"), Value: []byte("value1"), Digest: 0x0101},
				{Key: []byte("k2"), Value: []byte("a longer value 2"), Digest: 0xfffe},
			},
		}

		// Execute
		back, err := bytesToBucket(bucketToBytes(image))

		// Check
		require.NoError(t, err, "decodes bucket")
		assert.Equal(t, image, back, "same bucket")
	})

	t.Run("rejects absurd entry counts", func(t *testing.T) {
		buf := []byte{0, 0xff, 0xff, 0xff, 0x7f}
		_, err := bytesToBucket(buf)
		assert.ErrorContains(t, err, "exceeds", "count larger than payload")
	})
}
