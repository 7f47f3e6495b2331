package gtfsdata

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CacheDir returns the directory used to store parsed-feed caches,
// honoring GTFS_CACHE_DIR if set.
func CacheDir() string {
	dir := os.Getenv("GTFS_CACHE_DIR")
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "cityhop-gtfs-cache")
	}
	return dir
}

// DirFingerprint hashes the concatenated contents of the mandatory
// and optional GTFS files in dir, so a parsed-feed cache entry can be
// invalidated whenever any input file changes.
func DirFingerprint(dir string) (string, error) {
	names := append(append([]string{}, mandatoryFiles...), "calendar_dates.txt")
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue // optional or missing; fingerprint simply omits it
		}
		h.Write([]byte(name))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func parsedCachePath(cacheDir, fingerprint string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("feed_%s.gob.gz", fingerprint))
}

// LoadCached attempts to load a previously parsed Feed from
// cacheDir for the given fingerprint.
func LoadCached(cacheDir, fingerprint string) (*Feed, error) {
	path := parsedCachePath(cacheDir, fingerprint)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var feed Feed
	if err := gob.NewDecoder(zr).Decode(&feed); err != nil {
		return nil, err
	}
	if feed.Stops == nil || feed.Routes == nil {
		return nil, fmt.Errorf("parsed cache is incomplete")
	}
	return &feed, nil
}

// SaveCached writes feed to cacheDir under the given fingerprint.
func SaveCached(cacheDir, fingerprint string, feed *Feed) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	path := parsedCachePath(cacheDir, fingerprint)
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	zw, err := gzip.NewWriterLevel(f, gzip.BestSpeed)
	if err != nil {
		f.Close()
		return err
	}

	encErr := gob.NewEncoder(zw).Encode(feed)
	closeErr := zw.Close()
	fileCloseErr := f.Close()
	if encErr != nil || closeErr != nil || fileCloseErr != nil {
		os.Remove(tmpPath)
		if encErr != nil {
			return encErr
		}
		if closeErr != nil {
			return closeErr
		}
		return fileCloseErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
