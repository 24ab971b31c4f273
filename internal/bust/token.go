// Package bust is the heart of the engine: it turns a scanned reference into
// a resolution against the resource index, derives the cache-bust token from
// the matched resources, and decides what edit, if any, the current operating
// mode allows.
package bust

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"time"

	"github.com/rebust/rebust/internal/index"
)

// NewDigester returns the digest function for a configured hash name.
func NewDigester(name string) (index.Digester, error) {
	switch name {
	case "crc32":
		return func(b []byte) []byte {
			var out [4]byte
			binary.LittleEndian.PutUint32(out[:], crc32.ChecksumIEEE(b))
			return out[:]
		}, nil
	case "sha1":
		return func(b []byte) []byte {
			sum := sha1.Sum(b)
			return sum[:]
		}, nil
	case "sha256":
		return func(b []byte) []byte {
			sum := sha256.Sum256(b)
			return sum[:]
		}, nil
	}
	return nil, fmt.Errorf("bust: unknown hash function %q", name)
}

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// b32enc is the token alphabet: standard base32, lowercased, unpadded, so
// tokens stay URL-safe in both query and filename position.
func b32enc(b []byte) string {
	return strings.ToLower(b32.EncodeToString(b))
}

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// splitLen returns the (mtime part, digest part) lengths for a total token
// length. The mtime part is capped at four characters; the digest gets the
// rest.
func splitLen(total int) (statLen, hashLen int) {
	statLen = total / 2
	if statLen > 4 {
		statLen = 4
	}
	return statLen, total - statLen
}

func encodeMtime(t time.Time) []byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], uint64(t.Unix()))
	return out[:]
}

// Token derives the cache-bust token for a single resource. Identical
// (mtime, digest) input always yields the identical token; changing either
// changes the token.
func Token(r *index.Resource, length int) string {
	statLen, hashLen := splitLen(length)
	return trunc(b32enc(encodeMtime(r.ModTime)), statLen) + trunc(b32enc(r.Digest), hashLen)
}

// CombinedToken derives the token for a multibust resource set: the newest
// mtime plus an order-independent aggregate of the per-resource digests.
// A change to any variant changes the combined token; the documented cost is
// that every variant of the reference is invalidated together.
func CombinedToken(rs []*index.Resource, length int, dig index.Digester) string {
	statLen, hashLen := splitLen(length)
	newest := rs[0].ModTime
	digests := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.ModTime.After(newest) {
			newest = r.ModTime
		}
		digests = append(digests, string(r.Digest))
	}
	sort.Strings(digests)
	combined := dig([]byte(strings.Join(digests, "")))
	return trunc(b32enc(encodeMtime(newest)), statLen) + trunc(b32enc(combined), hashLen)
}
