package fsutil

import (
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_SlashCrossingGlobs(t *testing.T) {
	m := NewMatcher([]string{"*lib/*", "*.git/*"})

	assert.True(t, m.Match("project/lib/jquery.js"))
	assert.True(t, m.Match("a/b/.git/config"))
	assert.False(t, m.Match("project/src/app.js"))

	// nil matcher matches nothing
	var nilM *Matcher
	assert.False(t, nilM.Match("anything"))
}

func TestHasSuffix_CaseInsensitive(t *testing.T) {
	suffixes := []string{".js", ".PNG"}
	assert.True(t, HasSuffix(suffixes, "app.js"))
	assert.True(t, HasSuffix(suffixes, "logo.png"))
	assert.True(t, HasSuffix(suffixes, "LOGO.PNG"))
	assert.False(t, HasSuffix(suffixes, "app.json"))
}

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("plain text, no nulls")))
	assert.False(t, IsBinary(nil))
	assert.True(t, IsBinary([]byte{0x7f, 'E', 'L', 'F', 0, 0}))
	assert.True(t, IsBinary([]byte("SQLite format 3\x00")))
}

func TestWalk_ExcludesAndCollects(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "root/a.js", []byte("a"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "root/sub/b.css", []byte("b"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "root/lib/vendor.js", []byte("v"), 0o644))

	var got []string
	err := Walk(fsys, "root", NewMatcher([]string{"*lib/*"}), func(p string, fi os.FileInfo) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"root/a.js", "root/sub/b.css"}, got)
}

func TestWalk_SymlinkCycleTerminates(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "root/sub/a.js", []byte("a"), 0o644))
	// loop points back at root
	require.NoError(t, fsys.Symlink("..", "root/sub/loop"))

	var got []string
	err := Walk(fsys, "root", nil, func(p string, fi os.FileInfo) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root/sub/a.js"}, got)
}

func TestPool_AllItemsOnce(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]int{}
	Pool(4, 100, func(wkr, i int) {
		mu.Lock()
		seen[i]++
		mu.Unlock()
	})
	require.Len(t, seen, 100)
	for i, n := range seen {
		assert.Equal(t, 1, n, "item %d", i)
	}
}

func TestPool_MoreWorkersThanItems(t *testing.T) {
	count := 0
	var mu sync.Mutex
	Pool(16, 2, func(wkr, i int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	assert.Equal(t, 2, count)
}
