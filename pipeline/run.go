// Package pipeline manages stage outputs on disk. Every stage writes
// into its own timestamped run directory and mirrors the result into a
// stable "latest" directory, so downstream stages can either pin a run
// or follow the most recent one.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

const (
	runTimeFmt = "20060102-150405"
	latestDir  = "latest"
	runsDir    = "runs"
)

// Stage names used for the run directory layout.
const (
	StageNormalize = "normalize"
	StageBaseline  = "baseline"
	StageDOP       = "dop"
	StageRisk      = "risk"
	StageRaster    = "raster"
	StageSites     = "sites"
	StageDataset   = "dataset"
	StageEval      = "eval"
	StageFigures   = "figures"
)

// Run is one stage execution with its output directory.
type Run struct {
	ID    string
	Stage string
	Dir   string

	root string
}

// NewRun creates output/<stage>/runs/<timestamp>-<id> and returns the
// run handle. The ID combines the wall time with a short unique suffix
// so concurrent runs never collide.
func NewRun(outputRoot, stage string) (*Run, error) {
	id := fmt.Sprintf("%s-%s", time.Now().UTC().Format(runTimeFmt), uuid.New().String()[:8])
	dir := filepath.Join(outputRoot, stage, runsDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create run dir %q: %w", dir, err)
	}
	glog.Infof("%s: writing run %s", stage, id)
	return &Run{ID: id, Stage: stage, Dir: dir, root: outputRoot}, nil
}

// Path returns the location of a file inside the run directory.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Finish mirrors the run directory into output/<stage>/latest. The
// mirror is rebuilt from scratch so stale files never linger.
func (r *Run) Finish() error {
	latest := filepath.Join(r.root, r.Stage, latestDir)
	if err := os.RemoveAll(latest); err != nil {
		return fmt.Errorf("pipeline: clear %q: %w", latest, err)
	}
	if err := copyTree(r.Dir, latest); err != nil {
		return fmt.Errorf("pipeline: mirror run %s: %w", r.ID, err)
	}
	glog.Infof("%s: run %s mirrored to %s", r.Stage, r.ID, latest)
	return nil
}

// Latest returns the path of a file in the stage's latest mirror.
func Latest(outputRoot, stage, name string) string {
	return filepath.Join(outputRoot, stage, latestDir, name)
}

// Resolve returns the first existing candidate path. It lets stages
// prefer the latest mirror while accepting a manually prepared file as
// fallback.
func Resolve(candidates ...string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("pipeline: none of the candidate inputs exist: %v", candidates)
}

// ListRuns returns the run IDs of a stage, newest first.
func ListRuns(outputRoot, stage string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(outputRoot, stage, runsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
