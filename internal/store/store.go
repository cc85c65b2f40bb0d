// Package store owns the canonical in-memory scrapbook document and the
// selected-year cursor, and exposes the only sanctioned mutation API.
//
// The document is an immutable value: every mutation deep-copies it, applies
// the change, and swaps the pointer, so readers always see a complete
// consistent snapshot. Each mutation (re)schedules one debounced write
// through the injected persistence strategy; rapid successive edits collapse
// into a single save at the cost of a bounded window of potential loss if
// the process dies inside the debounce interval.
package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"cottagebook/internal/persist"
	"cottagebook/pkg/models"
)

const saveTimeout = 30 * time.Second

type Store struct {
	persist  persist.Store
	debounce time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	doc     *models.Document
	current int // selected year, 0 = no selection
	timer   *time.Timer
	dirty   bool
	loaded  bool
}

type Option func(*Store)

// WithDebounce overrides the save debounce interval (default one second).
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(p persist.Store, opts ...Option) *Store {
	s := &Store{
		persist:  p,
		debounce: time.Second,
		logger:   log.Default(),
		doc:      models.NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the document from the persistence strategy once at startup
// and selects the most recent year, if any. Loading never schedules a save:
// the initial snapshot must not be mistaken for a user edit and written
// straight back.
func (s *Store) Load(ctx context.Context) {
	doc, err := s.persist.Load(ctx)
	if err != nil || doc == nil {
		if err != nil {
			s.logger.Printf("[store] load failed, starting empty: %v", err)
		}
		doc = models.NewDocument()
	}

	s.mu.Lock()
	s.doc = doc
	s.current = highestYear(doc)
	s.loaded = true
	s.mu.Unlock()
}

// CreateYear inserts an empty scrapbook for year and moves the cursor to it.
// Creating an existing year only moves the cursor; its photos and song stay
// untouched and no save is scheduled. Year range validation is the caller's
// contract, not enforced here.
func (s *Store) CreateYear(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Scrapbooks[year]; ok {
		s.current = year
		return
	}

	now := timestamp()
	next := s.doc.Clone()
	next.Scrapbooks[year] = &models.Scrapbook{
		Year:      year,
		Photos:    []models.Photo{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.doc = next
	s.current = year
	s.scheduleSaveLocked()
}

// DeleteYear removes the scrapbook for year if present. When the deleted
// year was selected, the cursor moves to the highest remaining year, or to
// no selection if none remain.
func (s *Store) DeleteYear(year int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Scrapbooks[year]; !ok {
		return
	}

	next := s.doc.Clone()
	delete(next.Scrapbooks, year)
	s.doc = next
	if s.current == year {
		s.current = highestYear(next)
	}
	s.scheduleSaveLocked()
}

// SelectYear moves the cursor without validating that year exists; a cursor
// pointing at a missing year just means "no current scrapbook" downstream.
// The cursor is session state, so no save is scheduled.
func (s *Store) SelectYear(year int) {
	s.mu.Lock()
	s.current = year
	s.mu.Unlock()
}

// AddPhoto appends photo to the selected scrapbook. No-op without a
// selection. Duplicate months are not rejected; the caller removes the old
// month's photo first.
func (s *Store) AddPhoto(photo models.Photo) {
	s.mutateCurrent(func(sb *models.Scrapbook) {
		sb.Photos = append(sb.Photos, photo)
	})
}

// RemovePhoto drops the photo with the given id from the selected scrapbook.
// Quietly does nothing when no photo matches.
func (s *Store) RemovePhoto(photoID string) {
	s.mutateCurrent(func(sb *models.Scrapbook) {
		kept := sb.Photos[:0]
		for _, p := range sb.Photos {
			if p.ID != photoID {
				kept = append(kept, p)
			}
		}
		sb.Photos = kept
	})
}

// SetSong sets or overwrites the selected scrapbook's song.
func (s *Store) SetSong(song models.Song) {
	s.mutateCurrent(func(sb *models.Scrapbook) {
		sb.Song = &song
	})
}

// RemoveSong clears the selected scrapbook's song.
func (s *Store) RemoveSong() {
	s.mutateCurrent(func(sb *models.Scrapbook) {
		sb.Song = nil
	})
}

// mutateCurrent applies fn to a fresh copy of the selected scrapbook,
// refreshes its UpdatedAt, swaps in the new document snapshot, and schedules
// a save. No-op when nothing is selected or the cursor dangles.
func (s *Store) mutateCurrent(fn func(*models.Scrapbook)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == 0 {
		return
	}
	if _, ok := s.doc.Scrapbooks[s.current]; !ok {
		return
	}

	next := s.doc.Clone()
	sb := next.Scrapbooks[s.current]
	fn(sb)
	sb.UpdatedAt = timestamp()
	s.doc = next
	s.scheduleSaveLocked()
}

// Scrapbooks returns all scrapbooks sorted by year descending, recomputed
// from the canonical document on every call.
func (s *Store) Scrapbooks() []*models.Scrapbook {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()

	out := make([]*models.Scrapbook, 0, len(doc.Scrapbooks))
	for _, sb := range doc.Scrapbooks {
		out = append(out, sb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// CurrentYear reports the cursor; ok is false when nothing is selected.
func (s *Store) CurrentYear() (year int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != 0
}

// CurrentScrapbook returns the scrapbook under the cursor, or nil.
func (s *Store) CurrentScrapbook() *models.Scrapbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == 0 {
		return nil
	}
	return s.doc.Scrapbooks[s.current]
}

// HasYear reports whether a scrapbook exists for year.
func (s *Store) HasYear(year int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.doc.Scrapbooks[year]
	return ok
}

// Snapshot returns a deep copy of the whole document, safe to serialize
// while mutations continue.
func (s *Store) Snapshot() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Flush writes any pending state synchronously. Safe to call with no save
// pending.
func (s *Store) Flush() {
	s.flush()
}

// Close flushes pending state and stops the debounce timer.
func (s *Store) Close() {
	s.flush()
}

func (s *Store) scheduleSaveLocked() {
	if !s.loaded {
		return
	}
	s.dirty = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Store) flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.dirty = false
	doc := s.doc
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	// Failure is logged and ignored: no retry, no rollback. The in-memory
	// document stays the source of truth for the session.
	if err := s.persist.Save(ctx, doc); err != nil {
		s.logger.Printf("[store] save failed: %v", err)
	}
}

func highestYear(doc *models.Document) int {
	best := 0
	for year := range doc.Scrapbooks {
		if year > best {
			best = year
		}
	}
	return best
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
