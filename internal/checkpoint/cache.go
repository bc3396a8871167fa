package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/fsutil"
)

// RemoteCacheDir is the directory under an experiment log root that holds
// fetched remote checkpoints.
const RemoteCacheDir = "remote_checkpoints"

var errCacheMiss = errors.New("not cached")

// Manifest describes one cached artifact. It is written after the artifact,
// so its presence means the artifact was committed.
type Manifest struct {
	RunReference   string    `json:"run_reference"`
	Selector       string    `json:"selector"`
	CheckpointName string    `json:"checkpoint_name"`
	SHA256         string    `json:"sha256"`
	Size           int64     `json:"size"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// CorruptEntryError reports a cache entry that fails the integrity check.
type CorruptEntryError struct {
	Path   string
	Reason string
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("cache entry %s is corrupt: %s", e.Path, e.Reason)
}

// Cache stores remote checkpoints keyed by run reference and selector.
type Cache struct {
	Root string
}

// Lookup returns the path of a verified cached artifact. It returns an error
// wrapping errCacheMiss when nothing is cached and a *CorruptEntryError when
// the cached artifact does not match its manifest.
func (c *Cache) Lookup(ref, selector string) (string, *Manifest, error) {
	dir, err := c.entryDir(ref)
	if err != nil {
		return "", nil, err
	}
	mpath := filepath.Join(dir, manifestName(selector))
	data, err := os.ReadFile(mpath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, errCacheMiss
	}
	if err != nil {
		return "", nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", nil, &CorruptEntryError{Path: mpath, Reason: "unreadable manifest: " + err.Error()}
	}
	if err := validName(m.CheckpointName); err != nil {
		return "", nil, &CorruptEntryError{Path: mpath, Reason: err.Error()}
	}
	path := filepath.Join(dir, m.CheckpointName)
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, &CorruptEntryError{Path: path, Reason: "artifact missing"}
	}
	if info.Size() != m.Size {
		return "", nil, &CorruptEntryError{Path: path, Reason: fmt.Sprintf("size %d, manifest says %d", info.Size(), m.Size)}
	}
	sum, err := fsutil.FileSHA256(path)
	if err != nil {
		return "", nil, err
	}
	if sum != m.SHA256 {
		return "", nil, &CorruptEntryError{Path: path, Reason: "digest mismatch"}
	}
	return path, &m, nil
}

// Put commits an artifact and its manifest and returns the artifact path.
func (c *Cache) Put(ref, selector string, a *Artifact, now time.Time) (string, error) {
	if err := validName(a.Name); err != nil {
		return "", err
	}
	dir, err := c.entryDir(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	if err := fsutil.WriteFileAtomic(path, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("write cached checkpoint: %w", err)
	}
	m := Manifest{
		RunReference:   ref,
		Selector:       selector,
		CheckpointName: a.Name,
		SHA256:         fsutil.SHA256(a.Data),
		Size:           int64(len(a.Data)),
		FetchedAt:      now.UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, manifestName(selector)), data, 0o644); err != nil {
		return "", fmt.Errorf("write cache manifest: %w", err)
	}
	return path, nil
}

func (c *Cache) entryDir(ref string) (string, error) {
	segs := strings.Split(strings.Trim(ref, "/"), "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `\:`) {
			return "", fmt.Errorf("invalid run reference %q", ref)
		}
	}
	return filepath.Join(append([]string{c.Root}, segs...)...), nil
}

func manifestName(selector string) string {
	if selector == "" {
		selector = "latest"
	}
	return "manifest-" + strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(selector) + ".json"
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid checkpoint name %q", name)
	}
	return nil
}
