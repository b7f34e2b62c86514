package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gostonefire/exthashmap/internal/conf"
	"github.com/gostonefire/exthashmap/pagestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	t.Run("creates an empty store and truncates an existing one", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "TestCreate")
		store, err := Create(name, false)
		require.NoError(t, err, "creates store")
		require.NoError(t, store.StoreBucket(1, pagestore.BucketImage{}), "stores bucket")

		// Execute
		store, err = Create(name, false)

		// Check
		require.NoError(t, err, "creates store again")
		_, err = store.LoadBucket(1)
		assert.Error(t, err, "old bucket gone")
	})

	t.Run("keeps files that do not belong to the store", func(t *testing.T) {
		// Prepare
		name := t.TempDir()
		notes := filepath.Join(name, "notes.txt")
		require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0644), "writes unrelated file")
		require.NoError(t, os.Mkdir(filepath.Join(name, "sub"), 0755), "creates unrelated directory")
		store, err := Create(name, false)
		require.NoError(t, err, "creates store")
		require.NoError(t, store.StorePage(3, pagestore.PageImage{Buckets: []uint64{1}}), "stores page")
		require.NoError(t, os.WriteFile(filepath.Join(name, "bucket-9.bin.tmp"), []byte{0}, 0644), "leaves temporary file")

		// Execute
		_, err = Create(name, false)

		// Check
		require.NoError(t, err, "creates store again")
		contents, err := os.ReadFile(notes)
		require.NoError(t, err, "unrelated file survives")
		assert.Equal(t, "keep me", string(contents), "unrelated file unchanged")
		assert.DirExists(t, filepath.Join(name, "sub"), "unrelated directory survives")
		assert.NoFileExists(t, filepath.Join(name, "page-3.bin"), "old page gone")
		assert.NoFileExists(t, filepath.Join(name, "bucket-9.bin.tmp"), "temporary file gone")
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := Create("", false)
		assert.Error(t, err, "empty name")
	})
}

func TestOpen(t *testing.T) {
	t.Run("fails without a directory record", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "TestOpen")
		_, err := Create(name, false)
		require.NoError(t, err, "creates store")

		// Execute
		_, err = Open(name, false)

		// Check
		assert.Error(t, err, "nothing committed yet")
	})

	t.Run("fails on a missing store", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing"), false)
		assert.Error(t, err, "missing store")
	})
}

func TestFileStore_Records(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run("stores loads and deletes records", func(t *testing.T) {
			// Prepare
			name := filepath.Join(t.TempDir(), "TestFileStore")
			store, err := Create(name, compress)
			require.NoError(t, err, "creates store")

			dir := pagestore.DirectoryImage{HashAlgorithm: 1, DigestWidth: 64, BucketCapacity: 4, NextID: 3, Pages: []uint64{1}}
			page := pagestore.PageImage{Buckets: []uint64{2}}
			bucket := pagestore.BucketImage{Entries: []pagestore.Entry{{Key: []byte("k"), Value: []byte("v"), Digest: 7}}}

			// Execute
			require.NoError(t, store.StoreBucket(2, bucket), "stores bucket")
			require.NoError(t, store.StorePage(1, page), "stores page")
			require.NoError(t, store.StoreDirectory(dir), "stores directory")
			require.NoError(t, store.Close(), "closes store")

			store, err = Open(name, compress)
			require.NoError(t, err, "opens store")

			// Check
			gotDir, err := store.LoadDirectory()
			require.NoError(t, err, "loads directory")
			assert.Equal(t, dir, gotDir, "same directory")

			gotPage, err := store.LoadPage(1)
			require.NoError(t, err, "loads page")
			assert.Equal(t, page, gotPage, "same page")

			gotBucket, err := store.LoadBucket(2)
			require.NoError(t, err, "loads bucket")
			assert.Equal(t, bucket, gotBucket, "same bucket")

			require.NoError(t, store.DeleteBucket(2), "deletes bucket")
			require.NoError(t, store.DeleteBucket(2), "deleting twice is fine")
			require.NoError(t, store.DeletePage(1), "deletes page")
			_, err = store.LoadPage(1)
			assert.Error(t, err, "page gone")

			_, err = os.Stat(filepath.Join(name, conf.DirectoryFileName+conf.TempSuffix))
			assert.True(t, os.IsNotExist(err), "no temporary file left behind")
		})
	}
}

func TestFileStore_CloseAndRemove(t *testing.T) {
	t.Run("refuses access after close and removes files", func(t *testing.T) {
		// Prepare
		name := filepath.Join(t.TempDir(), "TestRemove")
		store, err := Create(name, false)
		require.NoError(t, err, "creates store")

		// Execute
		err = store.Remove()
		assert.Error(t, err, "must close first")
		require.NoError(t, store.Close(), "closes store")

		// Check
		assert.Error(t, store.StoreBucket(1, pagestore.BucketImage{}), "closed store")
		require.NoError(t, store.Remove(), "removes store")
		_, err = os.Stat(name)
		assert.True(t, os.IsNotExist(err), "directory gone")
	})

	t.Run("keeps the directory when other files are in it", func(t *testing.T) {
		// Prepare
		name := t.TempDir()
		notes := filepath.Join(name, "notes.txt")
		require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0644), "writes unrelated file")
		store, err := Create(name, false)
		require.NoError(t, err, "creates store")
		require.NoError(t, store.StoreBucket(1, pagestore.BucketImage{}), "stores bucket")
		require.NoError(t, store.StoreDirectory(pagestore.DirectoryImage{Pages: []uint64{2}}), "stores directory")
		require.NoError(t, store.Close(), "closes store")

		// Execute
		err = store.Remove()

		// Check
		require.NoError(t, err, "removes store")
		assert.FileExists(t, notes, "unrelated file survives")
		assert.NoFileExists(t, filepath.Join(name, conf.DirectoryFileName), "directory record gone")
		assert.NoFileExists(t, filepath.Join(name, "bucket-1.bin"), "bucket record gone")
	})
}

func TestIsStoreFile(t *testing.T) {
	tests := map[string]bool{
		conf.DirectoryFileName:                  true,
		conf.DirectoryFileName + conf.TempSuffix: true,
		"page-12.bin":                            true,
		"bucket-7.bin":                           true,
		"bucket-7.bin" + conf.TempSuffix:         true,
		"notes.txt":                              false,
		"notes.txt" + conf.TempSuffix:            false,
		"page-12.dat":                            false,
		"directory.bin.bak":                      false,
	}

	for fileName, want := range tests {
		t.Run(fileName, func(t *testing.T) {
			assert.Equal(t, want, isStoreFile(fileName), "store file")
		})
	}
}
