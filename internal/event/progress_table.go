package event

import (
	"slices"
	"strings"
	"sync"
)

// ProgressKey identifies one expected file: its path and declared size.
type ProgressKey struct {
	Path  string
	Total uint64
}

// ProgressTable keeps the latest Progress per key, so repeated updates for
// the same file replace each other instead of piling up. It is safe for
// concurrent use.
type ProgressTable struct {
	mu      sync.Mutex
	entries map[ProgressKey]Progress
}

// NewProgressTable returns an empty table.
func NewProgressTable() *ProgressTable {
	return &ProgressTable{entries: make(map[ProgressKey]Progress)}
}

// Update stores p unless a larger value for the same key is already known.
// Dropped events may leave gaps but never move progress backwards.
func (t *ProgressTable) Update(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := p.Key()
	if prev, ok := t.entries[key]; ok && prev.Complete > p.Complete {
		return
	}

	t.entries[key] = p
}

// Len returns the number of tracked files.
func (t *ProgressTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Totals sums complete and expected bytes over every file with a known size.
// Files of unknown size add to complete only.
func (t *ProgressTable) Totals() (complete, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.entries {
		complete += p.Complete
		total += p.Total
	}

	return complete, total
}

// Active returns unfinished entries ordered by path.
func (t *ProgressTable) Active() []Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := make([]Progress, 0, len(t.entries))
	for _, p := range t.entries {
		if !p.Done() {
			active = append(active, p)
		}
	}

	slices.SortFunc(active, func(a, b Progress) int {
		return strings.Compare(a.Path, b.Path)
	})

	return active
}
