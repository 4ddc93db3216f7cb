package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Longer keys get truncated and suffixed with a hash so distinct calls never
// collide on the filesystem.
const maxKeyLen = 120

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key builds a cache key from an API call name and its parameters. Whenever
// sanitization or truncation alters the raw key, a hash of the original is
// appended: parameters differing only in punctuation (export names may carry
// colons) must never share an entry.
func Key(call string, params ...string) string {
	raw := call
	if len(params) > 0 {
		raw += "_" + strings.Join(params, "_")
	}
	key := unsafeKeyChars.ReplaceAllString(raw, "-")
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen]
	}
	if key != raw {
		sum := sha256.Sum256([]byte(raw))
		key += "-" + hex.EncodeToString(sum[:8])
	}
	return key
}

// Cache memoizes API call results as JSON files in a directory, one file per
// key. There is no expiry: a key is fetched once and then served from disk
// until the user deletes the directory or asks for a refresh.
type Cache struct {
	// Dir is where the JSON files live. Created on first write.
	Dir string

	// Disabled bypasses the cache entirely: nothing is read or written.
	Disabled bool

	// Refresh ignores existing entries but still writes fresh ones.
	Refresh bool
}

func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// Do loads the cached result for key into out, or runs fetch and persists
// whatever it returns. The fetched value must JSON round-trip into out; the
// round trip happens on the write path too, so hits and misses hand the
// caller identical data.
func (c *Cache) Do(key string, out any, fetch func() (any, error)) error {
	path := filepath.Join(c.Dir, key+".json")

	if !c.Disabled && !c.Refresh {
		data, err := os.ReadFile(path)
		if err == nil {
			if jsonErr := json.Unmarshal(data, out); jsonErr != nil {
				return fmt.Errorf("corrupt cache entry %s (delete it to refetch): %w", path, jsonErr)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	val, err := fetch()
	if err != nil {
		return err
	}
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}

	if !c.Disabled {
		if err := os.MkdirAll(c.Dir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}

	return json.Unmarshal(data, out)
}
