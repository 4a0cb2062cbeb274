package gnss

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/glog"
)

// SourceName identifies the log-directory source.
const SourceName = "logdir"

// LogDir scans a directory of GNSS Logger .txt exports, one file per
// measurement site. The site ID is the file name up to the first "_".
type LogDir struct {
	Dir string
}

func (l *LogDir) Name() string { return SourceName }

// Scan parses every .txt file in the directory and sends the resulting
// logs on the channel. The channel is closed when the scan completes.
// Files that fail to parse are logged and skipped; the scan itself only
// fails when the directory cannot be listed.
func (l *LogDir) Scan(logs chan<- Log) error {
	defer close(logs)

	paths, err := filepath.Glob(filepath.Join(l.Dir, "*.txt"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	glog.Infof("found %d logs in %s", len(paths), l.Dir)

	for _, p := range paths {
		siteID := SiteIDFromPath(p)
		f, err := os.Open(p)
		if err != nil {
			glog.Warningf("unable to open log %q: %s", p, err)
			logs <- Log{SiteID: siteID, ParseErr: err.Error()}
			continue
		}
		parsed, err := Parse(f)
		f.Close()
		if err != nil {
			glog.Warningf("unable to parse log %q: %s", p, err)
			logs <- Log{SiteID: siteID, ParseErr: err.Error()}
			continue
		}
		parsed.SiteID = siteID
		logs <- *parsed
	}
	return nil
}

// SiteIDFromPath derives the site ID from a log file path.
func SiteIDFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	return base
}
