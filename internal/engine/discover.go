package engine

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/rebust/rebust/internal/config"
	"github.com/rebust/rebust/internal/fsutil"
	"github.com/rebust/rebust/internal/scan"
)

// Discover walks a project and proposes a configuration for it: the static
// directories whose files are actually referenced from code, and the code
// directories containing those references. The result seeds the generated
// config file; the operator trims it from there.
func Discover(ctx context.Context, fsys billy.Filesystem) (*config.Config, error) {
	exclude := fsutil.NewMatcher(config.DefaultIgnoreDirs)

	staticByName := map[string][]string{} // base name -> dirs containing it
	var codeFiles []string
	err := fsutil.Walk(fsys, ".", exclude, func(p string, fi os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p = filepath.ToSlash(p)
		if fsutil.HasSuffix(config.DefaultStaticFiletypes, p) {
			name := path.Base(p)
			staticByName[name] = append(staticByName[name], path.Dir(p))
		}
		if fsutil.HasSuffix(config.DefaultCodeFiletypes, p) {
			codeFiles = append(codeFiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rules, err := scan.Compile("_cb_", config.DefaultStaticFiletypes)
	if err != nil {
		return nil, err
	}

	codeDirs := map[string]bool{}
	staticDirs := map[string]bool{}
	for _, cf := range codeFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := util.ReadFile(fsys, cf)
		if err != nil || fsutil.IsBinary(content) {
			continue
		}
		for _, ref := range rules.ScanContent(cf, content) {
			dirs, ok := staticByName[path.Base(ref.Path)]
			if !ok {
				continue
			}
			codeDirs[path.Dir(cf)] = true
			for _, d := range dirs {
				staticDirs[d] = true
			}
		}
	}

	cfg := &config.Config{
		StaticDirs: sortedKeys(staticDirs),
		CodeDirs:   sortedKeys(codeDirs),
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
