package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cryptoscan/internal/logger"
	"cryptoscan/internal/scan"
)

// Default startup locations, checked in order.
var defaultLocations = []string{
	"/etc/crontab",
	"/etc/cron.d",
	"/var/spool/cron",
	"/etc/anacrontab",
	"/etc/systemd/system",
	"/usr/lib/systemd/system",
	"/etc/init.d",
	"/etc/rc.local",
}

const (
	maxFileBytes  = 1 << 20
	lightBytes    = 4 << 10
	maxWalkDepth  = 5
	readerWorkers = 8
)

// Provider surfaces local startup-location files as content items.
type Provider struct {
	locations []string
}

// New creates a provider over the default startup locations plus any extra
// directories from config.
func New(extra ...string) *Provider {
	locations := make([]string, 0, len(defaultLocations)+len(extra))
	locations = append(locations, defaultLocations...)
	locations = append(locations, extra...)
	return &Provider{locations: locations}
}

// NewWithLocations creates a provider over an explicit location list.
func NewWithLocations(locations []string) *Provider {
	return &Provider{locations: locations}
}

// Name implements scan.Provider.
func (p *Provider) Name() string {
	return "Local System"
}

// Items walks the configured locations and reads each candidate file. Paths
// are collected and sorted before reading so item order is deterministic;
// file reads fan out across a worker pool.
func (p *Provider) Items(ctx context.Context, req scan.Request) ([]scan.Item, error) {
	var paths []string
	for _, loc := range p.locations {
		collect(loc, &paths)
	}
	sort.Strings(paths)

	if req.MaxItems > 0 && len(paths) > req.MaxItems {
		paths = paths[:req.MaxItems]
	}

	limit := maxFileBytes
	if req.Depth == scan.DepthLight {
		limit = lightBytes
	}

	slots := make([]scan.Item, len(paths))
	idxCh := make(chan int, len(paths))
	for i := range paths {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for w := 0; w < readerWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				if ctx.Err() != nil {
					return
				}
				content, err := readCapped(paths[i], limit)
				if err != nil {
					logger.Debugf("skipping unreadable file %s: %v", paths[i], err)
					continue
				}
				slots[i] = scan.Item{
					Source:   p.Name(),
					ItemType: classify(paths[i]),
					Content:  content,
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]scan.Item, 0, len(slots))
	for _, item := range slots {
		if item.Content == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// collect appends loc itself when it is a file, or its files up to
// maxWalkDepth when it is a directory. Missing locations are skipped.
func collect(loc string, paths *[]string) {
	info, err := os.Stat(loc)
	if err != nil {
		return
	}
	if !info.IsDir() {
		*paths = append(*paths, loc)
		return
	}

	root := filepath.Clean(loc)
	filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if entry.IsDir() {
			if walkDepth(root, path) > maxWalkDepth {
				return fs.SkipDir
			}
			return nil
		}
		if isSystemdDir(root) && !isUnitFile(path) {
			return nil
		}
		*paths = append(*paths, path)
		return nil
	})
}

func walkDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func isSystemdDir(root string) bool {
	return strings.Contains(root, "systemd")
}

func isUnitFile(path string) bool {
	return strings.HasSuffix(path, ".service") || strings.HasSuffix(path, ".timer")
}

func classify(path string) string {
	switch {
	case strings.Contains(path, "cron"):
		return "Cron Entry"
	case isUnitFile(path):
		return "Systemd Unit"
	case strings.Contains(path, "init"), strings.HasSuffix(path, "rc.local"):
		return "Init Script"
	default:
		return "Startup Script"
	}
}

func readCapped(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
