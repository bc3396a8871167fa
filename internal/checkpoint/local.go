package checkpoint

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/fsutil"
)

var checkpointPattern = regexp.MustCompile(`^model_(\d+)\.pt$`)

// FindLocal locates a checkpoint of a run under logRoot. runName is a run
// directory name or "latest" for the most recent run. selector is "latest"
// for the highest numbered checkpoint, a checkpoint number, or a file name.
func FindLocal(logRoot, runName, selector string) (string, error) {
	runDir, err := findRunDir(logRoot, runName)
	if err != nil {
		return "", err
	}
	name, err := selectCheckpoint(runDir, selector)
	if err != nil {
		if nf, ok := err.(*NotFoundError); ok {
			nf.Run = runName
		}
		return "", err
	}
	return filepath.Join(runDir, name), nil
}

func findRunDir(logRoot, runName string) (string, error) {
	if runName == config.LatestCheckpoint {
		dirs, err := fsutil.ListDirs(logRoot)
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		for i := len(dirs) - 1; i >= 0; i-- {
			if dirs[i] != RemoteCacheDir {
				return filepath.Join(logRoot, dirs[i]), nil
			}
		}
		return "", &NotFoundError{Run: runName, Reason: "no runs under " + logRoot}
	}

	dir := runName
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(logRoot, runName)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &NotFoundError{Run: runName, Reason: "run directory " + dir + " does not exist"}
	}
	return dir, nil
}

func selectCheckpoint(runDir, selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" || selector == config.LatestCheckpoint {
		names, err := fsutil.FindFilesMatching(runDir, checkpointPattern)
		if err != nil {
			return "", err
		}
		best, bestN := "", -1
		for _, name := range names {
			n, err := strconv.Atoi(checkpointPattern.FindStringSubmatch(name)[1])
			if err != nil {
				continue
			}
			if n > bestN {
				best, bestN = name, n
			}
		}
		if best == "" {
			return "", &NotFoundError{Checkpoint: config.LatestCheckpoint, Reason: "no model_<n>.pt files in " + runDir}
		}
		return best, nil
	}

	name := selector
	if _, err := strconv.Atoi(selector); err == nil {
		name = "model_" + selector + ".pt"
	}
	if name != filepath.Base(name) {
		return "", &NotFoundError{Checkpoint: selector, Reason: "checkpoint must be a file name"}
	}
	info, err := os.Stat(filepath.Join(runDir, name))
	if err != nil || !info.Mode().IsRegular() {
		return "", &NotFoundError{Checkpoint: selector, Reason: name + " does not exist in " + runDir}
	}
	return name, nil
}
