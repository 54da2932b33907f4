package service

import (
	"context"
	"sort"
	"sync"
)

type submitterSource interface {
	SubmittersByItems(ctx context.Context, itemIDs []string) (map[string][]string, error)
}

type submitterSet struct {
	students map[string]struct{}
	loaded   bool
}

// SubmitterIndex maps item ids to the students who submitted them. Items are loaded from storage
// on first use and maintained incrementally by the submission flow afterwards.
type SubmitterIndex struct {
	source submitterSource
	mu     sync.RWMutex
	items  map[string]*submitterSet
}

// NewSubmitterIndex constructs an index backed by source.
func NewSubmitterIndex(source submitterSource) *SubmitterIndex {
	return &SubmitterIndex{source: source, items: make(map[string]*submitterSet)}
}

// Add records a new submission.
func (x *SubmitterIndex) Add(itemID, studentID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.items[itemID]
	if !ok {
		set = &submitterSet{students: make(map[string]struct{})}
		x.items[itemID] = set
	}
	set.students[studentID] = struct{}{}
}

// Remove drops a deleted submission.
func (x *SubmitterIndex) Remove(itemID, studentID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if set, ok := x.items[itemID]; ok {
		delete(set.students, studentID)
	}
}

// Forget discards a deleted item.
func (x *SubmitterIndex) Forget(itemID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.items, itemID)
}

// Students returns the sorted, de-duplicated submitters of the given items.
func (x *SubmitterIndex) Students(ctx context.Context, itemIDs []string) ([]string, error) {
	if len(itemIDs) == 0 {
		return []string{}, nil
	}

	x.mu.RLock()
	missing := make([]string, 0)
	for _, id := range itemIDs {
		if set, ok := x.items[id]; !ok || !set.loaded {
			missing = append(missing, id)
		}
	}
	x.mu.RUnlock()

	if len(missing) > 0 {
		loaded, err := x.source.SubmittersByItems(ctx, missing)
		if err != nil {
			return nil, err
		}
		x.mu.Lock()
		for _, id := range missing {
			set, ok := x.items[id]
			if !ok {
				set = &submitterSet{students: make(map[string]struct{})}
				x.items[id] = set
			}
			for _, student := range loaded[id] {
				set.students[student] = struct{}{}
			}
			set.loaded = true
		}
		x.mu.Unlock()
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, id := range itemIDs {
		if set, ok := x.items[id]; ok {
			for student := range set.students {
				seen[student] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for student := range seen {
		out = append(out, student)
	}
	sort.Strings(out)
	return out, nil
}
