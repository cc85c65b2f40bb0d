package persist

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cottagebook/pkg/models"
)

// RemoteConfig locates the published document in a GitHub repository.
type RemoteConfig struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
	Token  string // empty means no write channel; saves go to Fallback
}

// RemoteStore reads the published document over HTTP and writes it back
// through the GitHub contents API. Writes carry the current file SHA as a
// best-effort conditional guard; this is not a safe multi-writer protocol.
// Without a token, Save persists through Fallback instead and the owner
// commits the exported file out of band.
type RemoteStore struct {
	cfg      RemoteConfig
	client   *http.Client
	fallback Store

	rawBase string
	apiBase string
}

func NewRemoteStore(cfg RemoteConfig, fallback Store) *RemoteStore {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return &RemoteStore{
		cfg:      cfg,
		client:   &http.Client{Timeout: 12 * time.Second},
		fallback: fallback,
		rawBase:  "https://raw.githubusercontent.com",
		apiBase:  "https://api.github.com",
	}
}

// Load fetches the published document with a cache-defeating query parameter.
// Any failure, including HTTP 404, yields a fresh empty document.
func (s *RemoteStore) Load(ctx context.Context) (*models.Document, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s?t=%d",
		s.rawBase, s.cfg.Owner, s.cfg.Repo, s.cfg.Branch, s.cfg.Path, time.Now().UnixNano())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build load request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[persist] load remote document: %v", err)
		return models.NewDocument(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// likely not published yet
		return models.NewDocument(), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[persist] read remote document: %v", err)
		return models.NewDocument(), nil
	}

	doc, err := decodeDocument(body)
	if err != nil {
		log.Printf("[persist] corrupt remote document, starting fresh: %v", err)
		return models.NewDocument(), nil
	}
	return doc, nil
}

func (s *RemoteStore) Save(ctx context.Context, doc *models.Document) error {
	if s.cfg.Token == "" {
		if s.fallback == nil {
			return errors.New("no write token and no local fallback configured")
		}
		return s.fallback.Save(ctx, doc)
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	// Best-effort revision guard: carry the current SHA if the file exists.
	sha, err := s.currentSHA(ctx)
	if err != nil {
		log.Printf("[persist] read remote SHA: %v", err)
	}

	payload := struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: "Update scrapbooks data",
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.cfg.Branch,
		SHA:     sha,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal contents payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	s.setAPIHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("save remote document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("save remote document: unexpected status %s", resp.Status)
	}
	return nil
}

func (s *RemoteStore) currentSHA(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(), nil)
	if err != nil {
		return "", fmt.Errorf("build sha request: %w", err)
	}
	s.setAPIHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch sha: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// file does not exist yet; PUT without a SHA creates it
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch sha: unexpected status %s", resp.Status)
	}

	var file struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", fmt.Errorf("decode sha response: %w", err)
	}
	return file.SHA, nil
}

func (s *RemoteStore) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.apiBase, s.cfg.Owner, s.cfg.Repo, s.cfg.Path)
}

func (s *RemoteStore) setAPIHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+s.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}
