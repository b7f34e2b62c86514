// Package exthashmap implements an extendible hash map over opaque byte keys and values.
//
// Records are addressed in three levels. The highest order bits of a key's digest select a page in the
// directory, the lowest order bits select a bucket in that page, and the bucket holds up to a fixed number of
// records. A full bucket is split in two, a page that runs out of low order bits is doubled or split by a high
// order bit, and the directory doubles when a page needs one more high order bit. Nothing is ever rehashed as a
// whole. With shrinking enabled, removals merge buckets, pages and the directory back.
//
// A map is either held in memory only or written through to a pagestore.PageStore, by default a directory of
// files created from Config.Name. Structural changes are copy-on-write and become durable by replacing a single
// record, so a failing store leaves both the store and the map as they were.
//
// Usage:
//
//	conf := exthashmap.DefaultConfig()
//	conf.Name = "/tmp/mymap"
//	m, _, err := exthashmap.NewExtHashMap(conf)
//	if err != nil {
//		return err
//	}
//	defer func() { _ = m.Close() }()
//
//	err = m.Insert([]byte("key"), []byte("value"))
//	value, err := m.Get([]byte("key"))
package exthashmap
