package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/okian/starbot/internal/domain/activity"
)

const defaultMaxSize = 10_000

// Deduper records announcement keys to ensure at-most-once announcements
// within a process lifetime.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so it can be announced again, e.g. after a
	// failed delivery.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key identifies one announcement: a participant reaching a star count.
func Key(p activity.Progress) string {
	return p.ID + ":" + strconv.Itoa(p.Stars)
}

// Filter returns the progress entries not announced before and records
// them. Order is preserved.
func Filter(ctx context.Context, d Deduper, progress []activity.Progress) []activity.Progress {
	if d == nil {
		return progress
	}
	var out []activity.Progress
	for _, p := range progress {
		if d.SeenAndRecord(ctx, Key(p)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Forget unrecords every entry of progress.
func Forget(ctx context.Context, d Deduper, progress []activity.Progress) {
	if d == nil {
		return
	}
	for _, p := range progress {
		d.Unrecord(ctx, Key(p))
	}
}

// inMemoryDeduper keeps keys in insertion order so the oldest can be
// evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
