package file

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gostonefire/exthashmap/internal/conf"
	"github.com/gostonefire/exthashmap/pagestore"
	"github.com/klauspost/compress/zstd"
)

// Encoders and decoders are expensive to create, so they are pooled between records
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// recordToBytes - Wraps a payload in a record header, compressing it if asked to and if it pays off
func recordToBytes(kind uint8, payload []byte, compress bool) (buf []byte) {
	var flags uint8
	stored := payload
	if compress && len(payload) > 0 {
		enc := getZstdEncoder()
		compressed := enc.EncodeAll(payload, nil)
		putZstdEncoder(enc)
		if len(compressed) < len(payload) {
			stored = compressed
			flags |= conf.FlagCompressed
		}
	}

	buf = make([]byte, conf.RecordHeaderLength, conf.RecordHeaderLength+len(stored))
	_ = copy(buf[conf.MagicOffset:], conf.RecordMagic)
	buf[conf.VersionOffset] = conf.FormatVersion
	buf[conf.KindOffset] = kind
	buf[conf.FlagsOffset] = flags
	binary.LittleEndian.PutUint32(buf[conf.PayloadLengthOffset:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(buf[conf.RawLengthOffset:], uint32(len(payload)))
	binary.LittleEndian.PutUint64(buf[conf.ChecksumOffset:], xxhash.Sum64(stored))
	buf = append(buf, stored...)

	return
}

// bytesToRecord - Validates a record header and returns the (decompressed) payload
func bytesToRecord(kind uint8, buf []byte) (payload []byte, err error) {
	if len(buf) < conf.RecordHeaderLength {
		err = fmt.Errorf("record of length %d is shorter than its header", len(buf))
		return
	}
	if string(buf[conf.MagicOffset:conf.MagicOffset+len(conf.RecordMagic)]) != conf.RecordMagic {
		err = fmt.Errorf("record has wrong magic")
		return
	}
	if buf[conf.VersionOffset] != conf.FormatVersion {
		err = fmt.Errorf("unsupported record format version %d", buf[conf.VersionOffset])
		return
	}
	if buf[conf.KindOffset] != kind {
		err = fmt.Errorf("expected record kind %d, found %d", kind, buf[conf.KindOffset])
		return
	}

	stored := buf[conf.RecordHeaderLength:]
	payloadLength := int(binary.LittleEndian.Uint32(buf[conf.PayloadLengthOffset:]))
	if payloadLength != len(stored) {
		err = fmt.Errorf("record payload length %d does not match header (%d)", len(stored), payloadLength)
		return
	}
	if xxhash.Sum64(stored) != binary.LittleEndian.Uint64(buf[conf.ChecksumOffset:]) {
		err = fmt.Errorf("record checksum mismatch")
		return
	}

	if buf[conf.FlagsOffset]&conf.FlagCompressed == 0 {
		payload = stored
		return
	}

	rawLength := int(binary.LittleEndian.Uint32(buf[conf.RawLengthOffset:]))
	dec := getZstdDecoder()
	payload, err = dec.DecodeAll(stored, make([]byte, 0, rawLength))
	putZstdDecoder(dec)
	if err != nil {
		err = fmt.Errorf("error while decompressing record: %w", err)
		return
	}
	if len(payload) != rawLength {
		err = fmt.Errorf("decompressed record length %d does not match header (%d)", len(payload), rawLength)
	}

	return
}

// decoder - Sequential little endian reader remembering the first error encountered
type decoder struct {
	buf []byte
	pos int
	err error
}

func (D *decoder) take(n int) (b []byte) {
	if D.err != nil {
		return
	}
	if n < 0 || len(D.buf)-D.pos < n {
		D.err = fmt.Errorf("payload truncated at offset %d", D.pos)
		return
	}
	b = D.buf[D.pos : D.pos+n]
	D.pos += n

	return
}

func (D *decoder) readUint8() uint8 {
	if b := D.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (D *decoder) readUint32() uint32 {
	if b := D.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (D *decoder) readUint64() uint64 {
	if b := D.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// readBytes - Returns a copy of the next n bytes
func (D *decoder) readBytes(n int) []byte {
	b := D.take(n)
	if b == nil {
		return nil
	}
	c := make([]byte, n)
	_ = copy(c, b)
	return c
}

// count - Reads a count of items each at least minSize bytes long and checks it against the remaining payload
func (D *decoder) count(minSize int) int {
	n := int(D.readUint32())
	if D.err == nil && n*minSize > len(D.buf)-D.pos {
		D.err = fmt.Errorf("item count %d exceeds payload", n)
		return 0
	}
	return n
}

// finish - Returns the first error, or an error if bytes remain unread
func (D *decoder) finish() error {
	if D.err == nil && D.pos != len(D.buf) {
		D.err = fmt.Errorf("%d trailing bytes in payload", len(D.buf)-D.pos)
	}
	return D.err
}

// directoryToBytes - Converts a DirectoryImage to its payload
func directoryToBytes(image pagestore.DirectoryImage) (buf []byte) {
	buf = make([]byte, 0, 24+8*len(image.Pages))
	buf = append(buf, image.HashAlgorithm, uint8(image.DigestWidth))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(image.BucketCapacity))
	buf = append(buf, uint8(image.InitialGlobalDepth), uint8(image.MaxPageDepth), uint8(image.GlobalDepth))
	buf = binary.LittleEndian.AppendUint64(buf, image.NextID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(image.Pages)))
	for _, id := range image.Pages {
		buf = binary.LittleEndian.AppendUint64(buf, id)
	}

	return
}

// bytesToDirectory - Converts a payload to a DirectoryImage
func bytesToDirectory(buf []byte) (image pagestore.DirectoryImage, err error) {
	d := &decoder{buf: buf}
	image.HashAlgorithm = d.readUint8()
	image.DigestWidth = uint(d.readUint8())
	image.BucketCapacity = int(d.readUint32())
	image.InitialGlobalDepth = uint(d.readUint8())
	image.MaxPageDepth = uint(d.readUint8())
	image.GlobalDepth = uint(d.readUint8())
	image.NextID = d.readUint64()
	n := d.count(8)
	image.Pages = make([]uint64, n)
	for i := range image.Pages {
		image.Pages[i] = d.readUint64()
	}

	err = d.finish()

	return
}

// pageToBytes - Converts a PageImage to its payload
func pageToBytes(image pagestore.PageImage) (buf []byte) {
	buf = make([]byte, 0, 6+8*len(image.Buckets))
	buf = append(buf, uint8(image.LocalDepth), uint8(image.DirectoryDepth))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(image.Buckets)))
	for _, id := range image.Buckets {
		buf = binary.LittleEndian.AppendUint64(buf, id)
	}

	return
}

// bytesToPage - Converts a payload to a PageImage
func bytesToPage(buf []byte) (image pagestore.PageImage, err error) {
	d := &decoder{buf: buf}
	image.LocalDepth = uint(d.readUint8())
	image.DirectoryDepth = uint(d.readUint8())
	n := d.count(8)
	image.Buckets = make([]uint64, n)
	for i := range image.Buckets {
		image.Buckets[i] = d.readUint64()
	}

	err = d.finish()

	return
}

// bucketToBytes - Converts a BucketImage to its payload
func bucketToBytes(image pagestore.BucketImage) (buf []byte) {
	size := 5
	for _, e := range image.Entries {
		size += 16 + len(e.Key) + len(e.Value)
	}

	buf = make([]byte, 0, size)
	buf = append(buf, uint8(image.LocalDepth))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(image.Entries)))
	for _, e := range image.Entries {
		buf = binary.LittleEndian.AppendUint64(buf, e.Digest)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Key)))
		buf = append(buf, e.Key...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Value)))
		buf = append(buf, e.Value...)
	}

	return
}

// bytesToBucket - Converts a payload to a BucketImage
func bytesToBucket(buf []byte) (image pagestore.BucketImage, err error) {
	d := &decoder{buf: buf}
	image.LocalDepth = uint(d.readUint8())
	n := d.count(16)
	image.Entries = make([]pagestore.Entry, n)
	for i := range image.Entries {
		image.Entries[i].Digest = d.readUint64()
		image.Entries[i].Key = d.readBytes(int(d.readUint32()))
		image.Entries[i].Value = d.readBytes(int(d.readUint32()))
	}

	err = d.finish()

	return
}
