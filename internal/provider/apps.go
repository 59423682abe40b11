// Package provider implements the application catalog provider: it
// scans configured directories for launchable entries and keeps the
// item store current as files appear and disappear. It is one concrete
// collaborator on the store's provider interface; plugins register
// items through the same Upsert/Remove calls.
package provider

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenlauncher/lumen/internal/catalog"
	"github.com/lumenlauncher/lumen/internal/config"
)

// Apps discovers executable files under the configured paths.
type Apps struct {
	store       *catalog.Store
	cfg         config.ProviderConfig
	matcherName string
	logger      *slog.Logger
}

// Option configures an Apps provider.
type Option func(*Apps)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Apps) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMatcher sets the matcher name registered with every discovered
// item. Empty uses the engine default.
func WithMatcher(name string) Option {
	return func(a *Apps) {
		a.matcherName = name
	}
}

// NewApps creates an application provider over the given store.
func NewApps(store *catalog.Store, cfg config.ProviderConfig, opts ...Option) *Apps {
	a := &Apps{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Scan walks the configured paths and replaces the catalog contents in
// one bulk publication. Unreadable subtrees are skipped, not fatal.
func (a *Apps) Scan(ctx context.Context) error {
	var specs []catalog.Spec
	seen := map[string]bool{}

	for _, root := range a.cfg.Paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				a.logger.Debug("scan skip", slog.String("path", path), slog.String("error", err.Error()))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if !a.cfg.IncludeHidden && isHidden(d.Name()) && path != root {
					return fs.SkipDir
				}
				return nil
			}
			spec, ok := a.specFor(path, d)
			if ok && !seen[spec.ID] {
				seen[spec.ID] = true
				specs = append(specs, spec)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := a.store.Replace(specs); err != nil {
		return err
	}
	a.logger.Info("catalog scan complete",
		slog.Int("items", len(specs)),
		slog.Int("paths", len(a.cfg.Paths)))
	return nil
}

// specFor builds the catalog registration for one file, if it is a
// launchable entry. The primary label is the file name; when the name
// carries an extension, the stem is added as an alias so "fire" matches
// "firefox.desktop".
func (a *Apps) specFor(path string, d fs.DirEntry) (catalog.Spec, bool) {
	name := d.Name()
	if !a.cfg.IncludeHidden && isHidden(name) {
		return catalog.Spec{}, false
	}
	info, err := d.Info()
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return catalog.Spec{}, false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	labels := []string{name}
	if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" && stem != name {
		labels = append(labels, stem)
	}

	return catalog.Spec{
		ID:      abs,
		Labels:  labels,
		Payload: abs,
		Matcher: a.matcherName,
	}, true
}

// upsertPath registers a single changed file, or removes it when it is
// no longer launchable.
func (a *Apps) upsertPath(path string) error {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return a.store.Remove(canonical(path))
	}
	spec, ok := a.specFor(path, fs.FileInfoToDirEntry(info))
	if !ok {
		return a.store.Remove(canonical(path))
	}
	return a.store.UpsertSpec(spec)
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
