package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"cottagebook/pkg/models"
)

// memStore records saves and serves a canned document on load.
type memStore struct {
	mu   sync.Mutex
	doc  *models.Document
	num  int
	last *models.Document
}

func (m *memStore) Load(ctx context.Context) (*models.Document, error) {
	if m.doc != nil {
		return m.doc, nil
	}
	return models.NewDocument(), nil
}

func (m *memStore) Save(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.num++
	m.last = doc
	return nil
}

func (m *memStore) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.num
}

func (m *memStore) lastSaved() *models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func newTestStore(t *testing.T) (*Store, *memStore) {
	t.Helper()
	p := &memStore{}
	s := New(p, WithDebounce(30*time.Millisecond))
	s.Load(context.Background())
	return s, p
}

func TestCreateAndDeleteYears(t *testing.T) {
	s, _ := newTestStore(t)

	s.CreateYear(2024)
	s.CreateYear(2025)
	s.CreateYear(2024) // idempotent
	s.DeleteYear(2024)
	s.DeleteYear(1999) // absent: no-op

	got := s.Scrapbooks()
	if len(got) != 1 || got[0].Year != 2025 {
		t.Fatalf("expected only 2025, got %+v", got)
	}
}

func TestCreateExistingYearKeepsContent(t *testing.T) {
	s, _ := newTestStore(t)

	s.CreateYear(2025)
	s.AddPhoto(models.Photo{ID: "p1", Month: 3, URL: "u1", UploadedAt: "t"})
	s.SetSong(models.Song{VideoID: "v1", URL: "u", AddedAt: "t"})

	s.CreateYear(2024)
	s.CreateYear(2025) // must not reset photos or song

	sb := s.CurrentScrapbook()
	if sb == nil || sb.Year != 2025 {
		t.Fatalf("expected cursor back on 2025, got %+v", sb)
	}
	if len(sb.Photos) != 1 || sb.Photos[0].ID != "p1" {
		t.Fatalf("photos lost on re-create: %+v", sb.Photos)
	}
	if sb.Song == nil || sb.Song.VideoID != "v1" {
		t.Fatalf("song lost on re-create: %+v", sb.Song)
	}
}

func TestSelectYear(t *testing.T) {
	s, _ := newTestStore(t)

	s.CreateYear(2024)
	s.CreateYear(2025)

	s.SelectYear(2024)
	if sb := s.CurrentScrapbook(); sb == nil || sb.Year != 2024 {
		t.Fatalf("expected 2024 selected, got %+v", sb)
	}

	// Selecting a nonexistent year is allowed and yields no current
	// scrapbook, not an error.
	s.SelectYear(1950)
	if sb := s.CurrentScrapbook(); sb != nil {
		t.Fatalf("expected no current scrapbook, got %+v", sb)
	}
	if y, ok := s.CurrentYear(); !ok || y != 1950 {
		t.Fatalf("cursor should still read 1950, got %d ok=%v", y, ok)
	}
}

func TestPhotoRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateYear(2025)

	p1 := models.Photo{ID: "p1", Month: 1, URL: "u1", UploadedAt: "t1"}
	p2 := models.Photo{ID: "p2", Month: 2, URL: "u2", UploadedAt: "t2"}
	s.AddPhoto(p1)
	s.AddPhoto(p2)
	s.RemovePhoto("p2")
	s.RemovePhoto("missing") // no-op

	sb := s.CurrentScrapbook()
	if len(sb.Photos) != 1 || sb.Photos[0] != p1 {
		t.Fatalf("expected photos restored to [p1], got %+v", sb.Photos)
	}
}

func TestSongRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateYear(2025)

	s.SetSong(models.Song{VideoID: "v1", URL: "u1", AddedAt: "t"})
	s.SetSong(models.Song{VideoID: "v2", URL: "u2", AddedAt: "t"}) // overwrite
	if sb := s.CurrentScrapbook(); sb.Song == nil || sb.Song.VideoID != "v2" {
		t.Fatalf("expected song v2, got %+v", sb.Song)
	}

	s.RemoveSong()
	if sb := s.CurrentScrapbook(); sb.Song != nil {
		t.Fatalf("expected song cleared, got %+v", sb.Song)
	}
}

func TestDeleteSelectedYearRepointsCursor(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateYear(2024)
	s.CreateYear(2025)

	s.DeleteYear(2025)
	if y, ok := s.CurrentYear(); !ok || y != 2024 {
		t.Fatalf("cursor should repoint to 2024, got %d ok=%v", y, ok)
	}
	if sb := s.CurrentScrapbook(); sb == nil || sb.Year != 2024 {
		t.Fatalf("expected current scrapbook 2024, got %+v", sb)
	}

	s.DeleteYear(2024)
	if _, ok := s.CurrentYear(); ok {
		t.Fatal("cursor should clear when no years remain")
	}
	if sb := s.CurrentScrapbook(); sb != nil {
		t.Fatalf("expected no current scrapbook, got %+v", sb)
	}
}

func TestDeleteUnselectedYearKeepsCursor(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateYear(2023)
	s.CreateYear(2025)
	s.SelectYear(2025)

	s.DeleteYear(2023)
	if y, _ := s.CurrentYear(); y != 2025 {
		t.Fatalf("cursor moved unexpectedly to %d", y)
	}
}

func TestMutationsWithoutSelectionAreNoOps(t *testing.T) {
	s, p := newTestStore(t)

	s.AddPhoto(models.Photo{ID: "p1", Month: 1, URL: "u"})
	s.RemovePhoto("p1")
	s.SetSong(models.Song{VideoID: "v"})
	s.RemoveSong()

	time.Sleep(100 * time.Millisecond)
	if n := p.saves(); n != 0 {
		t.Fatalf("no-op mutations scheduled %d save(s)", n)
	}
	if got := s.Scrapbooks(); len(got) != 0 {
		t.Fatalf("document changed: %+v", got)
	}
}

func TestScenarioEmptyToFirstPhoto(t *testing.T) {
	s, _ := newTestStore(t)

	s.CreateYear(2025)
	s.SelectYear(2025)
	s.AddPhoto(models.Photo{ID: "p1", Month: 2, URL: "u1", UploadedAt: "t"})

	sb := s.CurrentScrapbook()
	want := models.Photo{ID: "p1", Month: 2, URL: "u1", UploadedAt: "t"}
	if len(sb.Photos) != 1 || sb.Photos[0] != want {
		t.Fatalf("expected photos [%+v], got %+v", want, sb.Photos)
	}
}

func TestDebounceCollapsesWrites(t *testing.T) {
	s, p := newTestStore(t)

	s.CreateYear(2025)
	for i := 1; i <= 4; i++ {
		s.AddPhoto(models.Photo{ID: "p" + string(rune('0'+i)), Month: i, URL: "u"})
	}

	time.Sleep(150 * time.Millisecond)
	if n := p.saves(); n != 1 {
		t.Fatalf("expected exactly one debounced save, got %d", n)
	}

	saved := p.lastSaved()
	sb := saved.Scrapbooks[2025]
	if sb == nil || len(sb.Photos) != 4 {
		t.Fatalf("saved document should reflect the final state, got %+v", saved)
	}
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	s, p := newTestStore(t)

	s.CreateYear(2025)
	s.Flush()
	if n := p.saves(); n != 1 {
		t.Fatalf("expected flush to save immediately, got %d saves", n)
	}

	// Nothing pending: flush again must not write.
	s.Flush()
	if n := p.saves(); n != 1 {
		t.Fatalf("flush with nothing pending wrote anyway, %d saves", n)
	}
}

func TestLoadSelectsHighestYear(t *testing.T) {
	doc := models.NewDocument()
	doc.Scrapbooks[2023] = &models.Scrapbook{Year: 2023, Photos: []models.Photo{}}
	doc.Scrapbooks[2025] = &models.Scrapbook{Year: 2025, Photos: []models.Photo{}}
	doc.Scrapbooks[2019] = &models.Scrapbook{Year: 2019, Photos: []models.Photo{}}

	p := &memStore{doc: doc}
	s := New(p, WithDebounce(30*time.Millisecond))
	s.Load(context.Background())

	if y, ok := s.CurrentYear(); !ok || y != 2025 {
		t.Fatalf("expected most recent year 2025 selected, got %d ok=%v", y, ok)
	}
}

func TestLoadDoesNotTriggerSave(t *testing.T) {
	doc := models.NewDocument()
	doc.Scrapbooks[2024] = &models.Scrapbook{Year: 2024, Photos: []models.Photo{}}

	p := &memStore{doc: doc}
	s := New(p, WithDebounce(30*time.Millisecond))
	s.Load(context.Background())

	time.Sleep(100 * time.Millisecond)
	if n := p.saves(); n != 0 {
		t.Fatalf("loading the initial snapshot scheduled %d save(s)", n)
	}
}

func TestScrapbooksSortedDescending(t *testing.T) {
	s, _ := newTestStore(t)
	s.CreateYear(2021)
	s.CreateYear(2025)
	s.CreateYear(2023)

	got := s.Scrapbooks()
	want := []int{2025, 2023, 2021}
	for i, sb := range got {
		if sb.Year != want[i] {
			t.Fatalf("expected order %v, got %+v at %d", want, sb.Year, i)
		}
	}
}
