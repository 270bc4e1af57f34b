// Package search implements the command index behind the search palette.
//
// One writer (the plugin manager) replaces per-plugin entry sets and
// commits; any number of readers search concurrently. A commit swaps an
// immutable snapshot under the write lock, so a search issued after
// Commit returns always observes the committed documents. There is no
// eventual-consistency window.
package search

import (
	"log"
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"

	"lumen/internal/domain"
	"lumen/internal/eventbus"
)

// Entry is one indexed command.
type Entry = domain.SearchResult

// Index is the in-memory command index.
type Index struct {
	mu       sync.RWMutex
	pending  map[domain.PluginID][]Entry
	snapshot []Entry // immutable once published
	limit    int
	bus      eventbus.EventBus
}

// New creates an empty index. limit caps the number of results per
// query; bus may be nil.
func New(limit int, bus eventbus.EventBus) *Index {
	if limit <= 0 {
		limit = 10
	}
	return &Index{
		pending: make(map[domain.PluginID][]Entry),
		limit:   limit,
		bus:     bus,
	}
}

// ReplacePlugin stages the full entry set for one plugin, replacing any
// previously staged or committed entries for it. Call Commit to publish.
func (x *Index) ReplacePlugin(plugin domain.PluginID, entries []Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending[plugin] = append([]Entry(nil), entries...)
}

// RemovePlugin stages removal of a plugin's entries.
func (x *Index) RemovePlugin(plugin domain.PluginID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.pending, plugin)
}

// Commit publishes the staged state. Visibility is synchronous: the
// snapshot swap happens before Commit returns.
func (x *Index) Commit() {
	x.mu.Lock()
	plugins := make([]domain.PluginID, 0, len(x.pending))
	for id := range x.pending {
		plugins = append(plugins, id)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i] < plugins[j] })

	snapshot := make([]Entry, 0)
	for _, id := range plugins {
		snapshot = append(snapshot, x.pending[id]...)
	}
	x.snapshot = snapshot
	docs := len(snapshot)
	x.mu.Unlock()

	log.Printf("search: committed %d documents", docs)
	if x.bus != nil {
		x.bus.Publish(eventbus.IndexUpdatedEvent{Docs: docs})
	}
}

// Docs returns the number of committed documents.
func (x *Index) Docs() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.snapshot)
}

// Search returns the best matches for query, ranked by fuzzy score over
// "entrypoint name plugin name". An empty query returns no results.
func (x *Index) Search(query string) []Entry {
	if query == "" {
		return nil
	}

	x.mu.RLock()
	snapshot := x.snapshot
	x.mu.RUnlock()

	matches := fuzzy.FindFrom(query, entrySource(snapshot))
	n := len(matches)
	if n > x.limit {
		n = x.limit
	}

	results := make([]Entry, 0, n)
	for _, m := range matches[:n] {
		results = append(results, snapshot[m.Index])
	}
	return results
}

type entrySource []Entry

func (s entrySource) String(i int) string {
	return s[i].EntrypointName + " " + s[i].PluginName
}

func (s entrySource) Len() int { return len(s) }
