package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"golang.org/x/sync/singleflight"
)

// Resolver turns resume directives into checkpoint handles.
type Resolver struct {
	Store Store
	Now   func() time.Time
	// CacheDir replaces the per-experiment remote cache when set.
	CacheDir string

	// fetches collapses concurrent downloads of the same entry.
	fetches singleflight.Group
}

// NewResolver returns a resolver backed by store. store may be nil when no
// remote store is configured; remote directives then fail.
func NewResolver(store Store) *Resolver {
	return &Resolver{Store: store, Now: time.Now}
}

// Resolve returns nil for a fresh start, otherwise the checkpoint handle.
// logRoot is the experiment log root.
func (r *Resolver) Resolve(ctx context.Context, d config.ResumeDirective, logRoot string) (*Handle, error) {
	logger := ctxlog.FromContext(ctx)
	switch d.Kind {
	case config.ResumeNone:
		return nil, nil
	case config.ResumeLocal:
		p, err := FindLocal(logRoot, d.RunName, d.Checkpoint)
		if err != nil {
			return nil, err
		}
		h := &Handle{
			Path:           p,
			Source:         SourceLocal,
			RunIdentifier:  filepath.Base(filepath.Dir(p)),
			CheckpointName: filepath.Base(p),
		}
		logger.Info("Resolved local checkpoint.", "run", h.RunIdentifier, "checkpoint", h.CheckpointName)
		return h, nil
	case config.ResumeRemote:
		return r.resolveRemote(ctx, d, logRoot)
	}
	return nil, fmt.Errorf("unknown resume kind %d", d.Kind)
}

func (r *Resolver) resolveRemote(ctx context.Context, d config.ResumeDirective, logRoot string) (*Handle, error) {
	logger := ctxlog.FromContext(ctx).With("run_reference", d.RunReference)
	cache := &Cache{Root: filepath.Join(logRoot, RemoteCacheDir)}
	if r.CacheDir != "" {
		cache.Root = r.CacheDir
	}

	p, m, err := cache.Lookup(d.RunReference, d.Checkpoint)
	switch {
	case err == nil:
		h := r.remoteHandle(d, p, m.CheckpointName, SourceRemoteCached)
		logger.Info("Loading checkpoint from remote run.", "checkpoint", h.CheckpointName, "run", h.RunIdentifier, "source", "cached")
		return h, nil
	case errors.Is(err, errCacheMiss):
	default:
		var corrupt *CorruptEntryError
		if !errors.As(err, &corrupt) {
			return nil, &FetchError{RunReference: d.RunReference, Err: err}
		}
		logger.Warn("Ignoring corrupt cached checkpoint, fetching again.", "error", err)
	}

	if r.Store == nil {
		return nil, &FetchError{RunReference: d.RunReference, Err: errors.New("no remote store configured")}
	}
	key := cache.Root + "\x00" + d.RunReference + "\x00" + d.Checkpoint
	v, err, _ := r.fetches.Do(key, func() (any, error) {
		art, err := r.Store.Fetch(ctx, d.RunReference, d.Checkpoint)
		if err != nil {
			return nil, err
		}
		p, err := cache.Put(d.RunReference, d.Checkpoint, art, r.now())
		if err != nil {
			return nil, err
		}
		return [2]string{p, art.Name}, nil
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{RunReference: d.RunReference, Err: err}
	}
	entry := v.([2]string)
	p = entry[0]
	h := r.remoteHandle(d, p, entry[1], SourceRemoteDownloaded)
	logger.Info("Loading checkpoint from remote run.", "checkpoint", h.CheckpointName, "run", h.RunIdentifier, "source", "downloaded")
	return h, nil
}

func (r *Resolver) remoteHandle(d config.ResumeDirective, p, name string, src Source) *Handle {
	return &Handle{
		Path:           p,
		Source:         src,
		RunIdentifier:  path.Base(d.RunReference),
		CheckpointName: name,
	}
}

func (r *Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
