package dashboard

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"strconv"
	"sync"
	"time"
)

// ChartKey identifies one rendered chart: a viewer's section series over a
// date range.
type ChartKey struct {
	Viewer  string
	Section string
	Name    string
	Kind    string
	Range   DateRange
}

func (k ChartKey) String() string {
	return k.Viewer + "|" + k.Section + "|" + k.Kind + "|" + k.Name + "|" +
		k.Range.Start.UTC().Format(time.RFC3339) + "|" + k.Range.End.UTC().Format(time.RFC3339)
}

// RenderCache memoizes rendered chart HTML. digest fingerprints the plotted
// data; a stored entry with another digest is rendered again.
type RenderCache interface {
	GetOrRender(key ChartKey, digest string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache holding one entry per ChartKey. A
// non-positive TTL disables caching.
type ChartCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cachedChart
}

type cachedChart struct {
	viewer  string
	digest  string
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedChart),
	}
}

// GetOrRender returns the cached chart while its data and TTL hold, and
// renders a replacement otherwise. Render errors are not cached.
func (c *ChartCache) GetOrRender(key ChartKey, digest string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	id := key.String()
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok && (entry.digest != digest || !now.Before(entry.expires)) {
		delete(c.entries, id)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return entry.html, nil
	}

	html, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[id] = cachedChart{
		viewer:  key.Viewer,
		digest:  digest,
		html:    html,
		expires: now.Add(c.ttl),
	}
	c.mu.Unlock()
	return html, nil
}

// InvalidateViewer drops every chart rendered for the viewer and reports how
// many were removed.
func (c *ChartCache) InvalidateViewer(userID string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, entry := range c.entries {
		if entry.viewer == userID {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// DashboardUpdated drops the viewer's charts when their underlying data may
// have changed. Layout changes keep them.
func (c *ChartCache) DashboardUpdated(_ context.Context, event DashboardEvent) error {
	switch event.Reason {
	case reasonPreferencesUpdate, reasonSectionReorder, reasonSectionHide, reasonSectionShow, reasonUpdateFailed:
		return nil
	}
	c.InvalidateViewer(event.UserID)
	return nil
}

// seriesDigest fingerprints a chart title and its plotted points.
func seriesDigest(title string, series []ChartSeries) string {
	h := sha1.New()
	writeField(h, title)
	for _, s := range series {
		writeField(h, s.Name)
		for _, p := range s.Points {
			writeField(h, p.Label)
			writeField(h, strconv.FormatFloat(p.Value, 'g', -1, 64))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, value string) {
	_, _ = h.Write([]byte(value))
	_, _ = h.Write([]byte{0})
}
