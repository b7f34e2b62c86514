// Package file implements a page store keeping one file per record in a directory named after the hash map.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gostonefire/exthashmap/internal/conf"
	"github.com/gostonefire/exthashmap/pagestore"
)

// FileStore - A pagestore.PageStore writing each directory, page and bucket record to a file of its own
type FileStore struct {
	mu       sync.Mutex
	dir      string
	compress bool
	closed   bool
}

var _ pagestore.PageStore = (*FileStore)(nil)

// Create - Creates a new store in directory name, removing any store files already there.
// Other files in the directory are left as they are.
//   - compress sets whether record payloads are zstd compressed when written
func Create(name string, compress bool) (store *FileStore, err error) {
	if name == "" {
		err = fmt.Errorf("store name must not be empty")
		return
	}

	err = os.MkdirAll(name, 0755)
	if err != nil {
		err = fmt.Errorf("unable to create store directory: %w", err)
		return
	}

	err = removeStoreFiles(name)
	if err != nil {
		err = fmt.Errorf("unable to remove existing store: %w", err)
		return
	}

	store = &FileStore{dir: name, compress: compress}

	return
}

// Open - Opens an existing store in directory name.
// Records are read regardless of whether they were compressed, compress only affects new writes.
func Open(name string, compress bool) (store *FileStore, err error) {
	info, err := os.Stat(name)
	if err != nil {
		err = fmt.Errorf("unable to open existing store: %w", err)
		return
	}
	if !info.IsDir() {
		err = fmt.Errorf("store path %s is not a directory", name)
		return
	}

	_, err = os.Stat(filepath.Join(name, conf.DirectoryFileName))
	if err != nil {
		err = fmt.Errorf("store %s has no directory record: %w", name, err)
		return
	}

	store = &FileStore{dir: name, compress: compress}

	return
}

// Path - Returns the directory holding the store files
func (F *FileStore) Path() string {
	return F.dir
}

// LoadDirectory - Reads the directory record
func (F *FileStore) LoadDirectory() (image pagestore.DirectoryImage, err error) {
	payload, err := F.read(conf.DirectoryFileName, conf.KindDirectory)
	if err != nil {
		return
	}

	image, err = bytesToDirectory(payload)
	if err != nil {
		err = fmt.Errorf("corrupt directory record: %w", err)
	}

	return
}

// StoreDirectory - Atomically replaces the directory record
func (F *FileStore) StoreDirectory(image pagestore.DirectoryImage) (err error) {
	return F.write(conf.DirectoryFileName, conf.KindDirectory, directoryToBytes(image))
}

// LoadPage - Reads the page record with identifier id
func (F *FileStore) LoadPage(id uint64) (image pagestore.PageImage, err error) {
	payload, err := F.read(pageFileName(id), conf.KindPage)
	if err != nil {
		return
	}

	image, err = bytesToPage(payload)
	if err != nil {
		err = fmt.Errorf("corrupt page record %d: %w", id, err)
	}

	return
}

// StorePage - Atomically creates or replaces the page record with identifier id
func (F *FileStore) StorePage(id uint64, image pagestore.PageImage) (err error) {
	return F.write(pageFileName(id), conf.KindPage, pageToBytes(image))
}

// DeletePage - Removes the page record with identifier id
func (F *FileStore) DeletePage(id uint64) (err error) {
	return F.delete(pageFileName(id))
}

// LoadBucket - Reads the bucket record with identifier id
func (F *FileStore) LoadBucket(id uint64) (image pagestore.BucketImage, err error) {
	payload, err := F.read(bucketFileName(id), conf.KindBucket)
	if err != nil {
		return
	}

	image, err = bytesToBucket(payload)
	if err != nil {
		err = fmt.Errorf("corrupt bucket record %d: %w", id, err)
	}

	return
}

// StoreBucket - Atomically creates or replaces the bucket record with identifier id
func (F *FileStore) StoreBucket(id uint64, image pagestore.BucketImage) (err error) {
	return F.write(bucketFileName(id), conf.KindBucket, bucketToBytes(image))
}

// DeleteBucket - Removes the bucket record with identifier id
func (F *FileStore) DeleteBucket(id uint64) (err error) {
	return F.delete(bucketFileName(id))
}

// Close - Marks the store as closed, any further record access fails
func (F *FileStore) Close() (err error) {
	F.mu.Lock()
	defer F.mu.Unlock()

	F.closed = true

	return
}

// Remove - Removes the store files, and the store directory if nothing else is left in it
func (F *FileStore) Remove() (err error) {
	F.mu.Lock()
	defer F.mu.Unlock()

	if !F.closed {
		err = fmt.Errorf("store must be closed before it is removed")
		return
	}

	if err = removeStoreFiles(F.dir); err != nil {
		return
	}

	entries, err := os.ReadDir(F.dir)
	if err != nil || len(entries) > 0 {
		return
	}
	err = os.Remove(F.dir)

	return
}

// read - Reads and validates a record file
func (F *FileStore) read(fileName string, kind uint8) (payload []byte, err error) {
	F.mu.Lock()
	defer F.mu.Unlock()

	if F.closed {
		err = fmt.Errorf("store is closed")
		return
	}

	buf, err := os.ReadFile(filepath.Join(F.dir, fileName))
	if err != nil {
		return
	}

	payload, err = bytesToRecord(kind, buf)
	if err != nil {
		err = fmt.Errorf("invalid record file %s: %w", fileName, err)
	}

	return
}

// write - Writes a record to a temporary file, syncs it and renames it over the target
func (F *FileStore) write(fileName string, kind uint8, payload []byte) (err error) {
	F.mu.Lock()
	defer F.mu.Unlock()

	if F.closed {
		err = fmt.Errorf("store is closed")
		return
	}

	target := filepath.Join(F.dir, fileName)
	tmp := target + conf.TempSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return
	}

	_, err = f.Write(recordToBytes(kind, payload, F.compress))
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return
	}

	err = os.Rename(tmp, target)
	if err != nil {
		_ = os.Remove(tmp)
		return
	}

	err = syncDir(F.dir)

	return
}

// delete - Removes a record file, a file that is already gone is not an error
func (F *FileStore) delete(fileName string) (err error) {
	F.mu.Lock()
	defer F.mu.Unlock()

	if F.closed {
		err = fmt.Errorf("store is closed")
		return
	}

	err = os.Remove(filepath.Join(F.dir, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}

	return
}

// syncDir - Flushes directory entries so that a rename survives a crash
func syncDir(dir string) (err error) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}

	err = d.Sync()
	if closeErr := d.Close(); err == nil {
		err = closeErr
	}

	return
}

// removeStoreFiles - Removes the directory record, every page and bucket record and any temporary file in dir
func removeStoreFiles(dir string) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isStoreFile(entry.Name()) {
			continue
		}
		err = os.Remove(filepath.Join(dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return
		}
	}

	return
}

// isStoreFile - Returns true if fileName is a file the store writes
func isStoreFile(fileName string) bool {
	name := strings.TrimSuffix(fileName, conf.TempSuffix)
	if name == conf.DirectoryFileName {
		return true
	}
	for _, pattern := range []string{conf.PageFilePattern, conf.BucketFilePattern} {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

// pageFileName - Returns the file name of the page record with identifier id
func pageFileName(id uint64) string {
	return fmt.Sprintf("page-%d.bin", id)
}

// bucketFileName - Returns the file name of the bucket record with identifier id
func bucketFileName(id uint64) string {
	return fmt.Sprintf("bucket-%d.bin", id)
}
