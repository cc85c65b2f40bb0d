package persist

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cottagebook/pkg/models"
)

type recordingStore struct {
	mu    sync.Mutex
	saves int
}

func (r *recordingStore) Load(ctx context.Context) (*models.Document, error) {
	return models.NewDocument(), nil
}

func (r *recordingStore) Save(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func newRemoteForTest(srvURL, token string, fallback Store) *RemoteStore {
	s := NewRemoteStore(RemoteConfig{
		Owner:  "owner",
		Repo:   "book",
		Branch: "main",
		Path:   "scrapbooks.json",
		Token:  token,
	}, fallback)
	s.rawBase = srvURL
	s.apiBase = srvURL
	return s
}

func TestRemoteLoadNotFoundYieldsFreshDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	doc, err := newRemoteForTest(srv.URL, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load must not fail on 404: %v", err)
	}
	if doc.Version != models.SchemaVersion || len(doc.Scrapbooks) != 0 {
		t.Fatalf("expected fresh empty document, got %+v", doc)
	}
}

func TestRemoteLoadParsesPublishedDocument(t *testing.T) {
	var gotPath, gotBuster string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBuster = r.URL.Query().Get("t")
		io.WriteString(w, `{
			"version": "1.0",
			"scrapbooks": {
				"2025": {"year": 2025, "photos": [], "createdAt": "c", "updatedAt": "u"}
			}
		}`)
	}))
	defer srv.Close()

	doc, err := newRemoteForTest(srv.URL, "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotPath != "/owner/book/main/scrapbooks.json" {
		t.Fatalf("unexpected raw path %q", gotPath)
	}
	if gotBuster == "" {
		t.Fatal("expected a cache-defeating query parameter")
	}
	if sb := doc.Scrapbooks[2025]; sb == nil || sb.Year != 2025 {
		t.Fatalf("document not parsed: %+v", doc)
	}
}

func TestRemoteSaveCarriesCurrentSHA(t *testing.T) {
	var put struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/book/contents/scrapbooks.json" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, `{"sha": "abc123"}`)
		case http.MethodPut:
			gotAuth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&put); err != nil {
				t.Errorf("decode put body: %v", err)
			}
			io.WriteString(w, `{"content": {}}`)
		}
	}))
	defer srv.Close()

	doc := models.NewDocument()
	doc.Scrapbooks[2025] = &models.Scrapbook{Year: 2025, Photos: []models.Photo{}}

	if err := newRemoteForTest(srv.URL, "tok", nil).Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	if gotAuth != "token tok" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if put.SHA != "abc123" {
		t.Fatalf("expected conditional update with sha abc123, got %q", put.SHA)
	}
	if put.Branch != "main" {
		t.Fatalf("expected branch main, got %q", put.Branch)
	}

	raw, err := base64.StdEncoding.DecodeString(put.Content)
	if err != nil {
		t.Fatalf("content is not base64: %v", err)
	}
	var uploaded models.Document
	if err := json.Unmarshal(raw, &uploaded); err != nil {
		t.Fatalf("uploaded content is not the document: %v", err)
	}
	if _, ok := uploaded.Scrapbooks[2025]; !ok {
		t.Fatalf("uploaded document missing data: %+v", uploaded)
	}
}

func TestRemoteSaveCreatesWhenFileMissing(t *testing.T) {
	var put struct {
		SHA string `json:"sha"`
	}
	sawSHAKey := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.NotFound(w, r)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			sawSHAKey = json.Valid(body) && containsKey(body, "sha")
			json.Unmarshal(body, &put)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"content": {}}`)
		}
	}))
	defer srv.Close()

	if err := newRemoteForTest(srv.URL, "tok", nil).Save(context.Background(), models.NewDocument()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if sawSHAKey || put.SHA != "" {
		t.Fatal("create must not carry a sha")
	}
}

func TestRemoteSaveWithoutTokenFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the remote without a token")
	}))
	defer srv.Close()

	fallback := &recordingStore{}
	if err := newRemoteForTest(srv.URL, "", fallback).Save(context.Background(), models.NewDocument()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if fallback.saves != 1 {
		t.Fatalf("expected one fallback save, got %d", fallback.saves)
	}
}

func containsKey(body []byte, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
