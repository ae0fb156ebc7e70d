package analysis

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"docsync/internal/services"
)

// Fingerprint computes a cheap, comparable summary of a file's state used to
// decide whether cached analysis is still valid. Files at or below
// hashMaxBytes are fingerprinted by content hash; larger files fall back to
// mtime+size, which is cheaper but invalidates on touch.
func Fingerprint(path string, hashMaxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrFileAccess, "fingerprint", "stat", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrFileAccess, "fingerprint", "stat", path+" is a directory", nil)
	}

	if hashMaxBytes > 0 && info.Size() <= hashMaxBytes {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", services.Wrap(services.ErrFileAccess, "fingerprint", "read", path, err)
		}
		return fmt.Sprintf("x:%x:%d", xxh3.Hash(data), len(data)), nil
	}

	return fmt.Sprintf("m:%d:%d", info.ModTime().UTC().UnixNano(), info.Size()), nil
}

// ContentHashed reports whether a fingerprint was derived from file content
// rather than stat metadata.
func ContentHashed(fingerprint string) bool {
	return strings.HasPrefix(fingerprint, "x:")
}

// FingerprintSize extracts the file size recorded in a fingerprint, or -1
// when the fingerprint is malformed.
func FingerprintSize(fingerprint string) int64 {
	parts := strings.Split(fingerprint, ":")
	if len(parts) != 3 {
		return -1
	}
	size, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return -1
	}
	return size
}
