package processor

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/duplicationmill/core/nlog"
)

// staleAge is how long a "dupmill-*.tmp" file may sit in a staging
// directory before CleanStaging treats it as an orphan from a worker that
// died mid-copy.
const staleAge = time.Hour

// CleanStaging walks dir (non-recursively in practice, since the processor
// never creates subdirectories there) and removes stale temp files left
// behind by a worker that crashed or was killed mid-copy protocol. Run once
// on worker startup.
func CleanStaging(dir string) error {
	now := time.Now()
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			if de.IsDir() {
				return godirwalk.SkipThis
			}
			name := filepath.Base(path)
			if !strings.HasPrefix(name, "dupmill-") || !strings.HasSuffix(name, ".tmp") {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil {
				return nil
			}
			if now.Sub(info.ModTime()) < staleAge {
				return nil
			}
			if err := os.Remove(path); err != nil {
				nlog.Warningf("staging cleanup: remove %q: %v", path, err)
				return nil
			}
			nlog.Infof("staging cleanup: removed stale temp file %q", path)
			return nil
		},
	})
}
