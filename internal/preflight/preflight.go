// Package preflight checks that backup roots are ready before a run:
// existence/readability probes, a polling wait for volumes that mount
// late, and a destination writability probe.
package preflight

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWaitTimeout = 30 * time.Second
	DefaultWaitPoll    = time.Second
)

// Available reports whether path is a readable directory.
func Available(path string) bool {
	_, err := os.ReadDir(path)
	return err == nil
}

// Writable verifies that dir accepts new files with a create-and-remove
// probe.
func Writable(dir string) error {
	f, err := os.CreateTemp(dir, ".everysync-probe-*")
	if err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}

// WaitFor polls until every path is available or the timeout elapses.
// Paths are probed concurrently each round; onWait receives the paths
// still missing after a round. External volumes often mount a few
// seconds after login, so a run waits rather than failing outright.
func WaitFor(ctx context.Context, paths []string, timeout, poll time.Duration, onWait func(missing []string)) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if poll <= 0 {
		poll = DefaultWaitPoll
	}

	start := time.Now()
	for {
		missing := probeAll(paths)
		if len(missing) == 0 {
			return nil
		}

		if time.Since(start)+poll > timeout {
			return fmt.Errorf("timed out after %s waiting for: %s",
				timeout, strings.Join(missing, ", "))
		}
		if onWait != nil {
			onWait(missing)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

func probeAll(paths []string) []string {
	var mu sync.Mutex
	var missing []string

	var g errgroup.Group
	for _, p := range paths {
		g.Go(func() error {
			if !Available(p) {
				mu.Lock()
				missing = append(missing, p)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(missing)
	return missing
}
