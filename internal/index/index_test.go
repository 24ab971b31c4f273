package index

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crcDigest(b []byte) []byte {
	var out [4]byte
	binary.LittleEndian.PutUint32(out[:], crc32.ChecksumIEEE(b))
	return out[:]
}

func TestBuild_IndexesStaticFiles(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "static/js/app.js", []byte("var a;"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "static/img/logo.png", []byte{1, 2, 3}, 0o644))
	require.NoError(t, util.WriteFile(fsys, "static/readme.txt", []byte("not static"), 0o644))

	ix, err := Build(context.Background(), fsys, Options{
		Roots:     []string{"static"},
		Filetypes: []string{".js", ".png"},
		Digest:    crcDigest,
	})
	require.NoError(t, err)
	require.Equal(t, 2, ix.Len())

	hits := ix.Lookup("js/app.js")
	require.Len(t, hits, 1)
	assert.Equal(t, "static", hits[0].Root)
	assert.Equal(t, "js/app.js", hits[0].RelPath)
	assert.Equal(t, "static/js/app.js", hits[0].AbsPath)
	assert.Equal(t, int64(6), hits[0].Size)
	assert.Equal(t, crcDigest([]byte("var a;")), hits[0].Digest)

	assert.Len(t, ix.ByName("logo.png"), 1)
	assert.Empty(t, ix.Lookup("readme.txt"))
}

func TestBuild_MultipleRootsKeepOrder(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "first/app.js", []byte("one"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "second/app.js", []byte("two"), 0o644))

	ix, err := Build(context.Background(), fsys, Options{
		Roots:  []string{"first", "second"},
		Digest: crcDigest,
	})
	require.NoError(t, err)

	hits := ix.Lookup("app.js")
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].Root)
	assert.Equal(t, "second", hits[1].Root)
	assert.NotEqual(t, hits[0].Digest, hits[1].Digest)
}

func TestBuild_ExcludePatterns(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "static/app.js", []byte("a"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "static/lib/vendor.js", []byte("v"), 0o644))

	ix, err := Build(context.Background(), fsys, Options{
		Roots:   []string{"static"},
		Exclude: []string{"*lib/*"},
		Digest:  crcDigest,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Lookup("lib/vendor.js"))
}

func TestBuild_MissingRootIsFatal(t *testing.T) {
	_, err := Build(context.Background(), memfs.New(), Options{
		Roots:  []string{"gone"},
		Digest: crcDigest,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")
}

func TestBuild_RequiresDigester(t *testing.T) {
	_, err := Build(context.Background(), memfs.New(), Options{Roots: []string{"x"}})
	assert.Error(t, err)
}

func TestBuild_DigestChangesWithContent(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "static/a.js", []byte("before"), 0o644))

	ix1, err := Build(context.Background(), fsys, Options{Roots: []string{"static"}, Digest: crcDigest})
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fsys, "static/a.js", []byte("after!"), 0o644))
	ix2, err := Build(context.Background(), fsys, Options{Roots: []string{"static"}, Digest: crcDigest})
	require.NoError(t, err)

	// the index is a fresh snapshot per run, digests are never cached
	assert.NotEqual(t, ix1.Lookup("a.js")[0].Digest, ix2.Lookup("a.js")[0].Digest)
}
