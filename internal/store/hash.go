package store

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// Fingerprint computes the cache key for one file. Any change to the file's
// size or modification time, the requested extractor set, or the options
// that shape a result produces a different key.
func Fingerprint(path string, size int64, modTime time.Time, set extract.Set, opts extract.Options) string {
	h := sha256.New()

	fmt.Fprintf(h, "path:%s\n", path)
	fmt.Fprintf(h, "size:%d\n", size)
	fmt.Fprintf(h, "mtime:%d\n", modTime.UnixNano())
	fmt.Fprintf(h, "set:%s\n", set.String())
	fmt.Fprintf(h, "max:%d\n", opts.MaxFileSize)
	fmt.Fprintf(h, "full:%v\n", opts.FullComment)

	return fmt.Sprintf("%x", h.Sum(nil))
}
