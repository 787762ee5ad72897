// Package update implements the background update check.
//
// The check is fire and forget: it runs off the foreground command path,
// caches its finding in its own file with a TTL, and never lets a failure
// reach the user. Foreground commands only ever read the cache.
package update

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/atomicfile"
)

// DefaultTTL is how long a cached check result stays fresh.
const DefaultTTL = 24 * time.Hour

const releaseURL = "https://api.github.com/repos/tranhoangtu-it/mcpman-sub001/releases/latest"

type cacheFile struct {
	CheckedAt time.Time `json:"checkedAt"`
	Latest    string    `json:"latest"`
}

// Checker performs and caches update checks. Fetch and Now are
// replaceable for tests.
type Checker struct {
	CachePath string
	TTL       time.Duration
	Fetch     func(ctx context.Context) (string, error)
	Now       func() time.Time
}

// NewChecker builds a checker writing its cache to cachePath.
func NewChecker(cachePath string) *Checker {
	return &Checker{
		CachePath: cachePath,
		TTL:       DefaultTTL,
		Fetch:     fetchLatestRelease,
		Now:       time.Now,
	}
}

// RunInBackground refreshes the cache in a goroutine if it is stale.
// It never reports errors; the foreground path must not be affected by
// a failed check. The returned channel closes when the refresh settles,
// so a one-shot command can wait for it before the process exits —
// otherwise the fetch would be killed mid-flight on nearly every run
// and the cache would never fill.
func (c *Checker) RunInBackground() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, fresh := c.readCache(); fresh {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		latest, err := c.Fetch(ctx)
		if err != nil || latest == "" {
			return
		}
		data, err := json.Marshal(cacheFile{CheckedAt: c.Now(), Latest: latest})
		if err != nil {
			return
		}
		_ = atomicfile.WriteFile(c.CachePath, data)
	}()
	return done
}

// Notice returns the newer version string if the cache holds one ahead
// of current, and false otherwise. It never blocks on the network.
func (c *Checker) Notice(current string) (string, bool) {
	cached, _ := c.readCache()
	if cached == nil || cached.Latest == "" {
		return "", false
	}
	if CompareVersions(cached.Latest, current) > 0 {
		return cached.Latest, true
	}
	return "", false
}

func (c *Checker) readCache() (*cacheFile, bool) {
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return nil, false
	}
	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	fresh := c.Now().Sub(cached.CheckedAt) < c.TTL
	return &cached, fresh
}

func fetchLatestRelease(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return "", err
	}
	return release.TagName, nil
}
