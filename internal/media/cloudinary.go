// Package media uploads photos to Cloudinary via its unsigned upload API.
// The rest of the system only ever sees the resolved URL; API-level failures
// surface as a result with Success=false, never as a Go error.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var monthNames = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

type Client struct {
	CloudName    string
	UploadPreset string
	Folder       string
	HTTP         *http.Client

	// BaseURL and DeliveryBase exist for tests; zero values hit Cloudinary.
	BaseURL      string
	DeliveryBase string
}

func NewClient(cloudName, uploadPreset, folder string) *Client {
	return &Client{
		CloudName:    cloudName,
		UploadPreset: uploadPreset,
		Folder:       folder,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether a cloud name is set. An unconfigured client
// fails every upload immediately with an explanatory result.
func (c *Client) Configured() bool {
	return c != nil && c.CloudName != ""
}

type UploadResult struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Upload sends the file as an unsigned upload under a deterministic
// year/month public ID, so re-uploading a month replaces the stored image.
func (c *Client) Upload(ctx context.Context, file io.Reader, filename string, year, month int) UploadResult {
	if !c.Configured() {
		return UploadResult{Error: "media uploads not configured"}
	}
	if month < 1 || month > 12 {
		return UploadResult{Error: fmt.Sprintf("invalid month %d", month)}
	}

	publicID := c.publicID(year, month)

	var body strings.Builder
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{PublicID: publicID, Error: "build upload request"}
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{PublicID: publicID, Error: "read upload file"}
	}
	_ = mw.WriteField("public_id", publicID)
	_ = mw.WriteField("upload_preset", c.UploadPreset)
	if err := mw.Close(); err != nil {
		return UploadResult{PublicID: publicID, Error: "build upload request"}
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL(), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body.String()))
	if err != nil {
		return UploadResult{PublicID: publicID, Error: "build upload request"}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return UploadResult{PublicID: publicID, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := "upload failed"
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return UploadResult{PublicID: publicID, Error: msg}
	}

	var uploaded struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return UploadResult{PublicID: publicID, Error: "decode upload response"}
	}

	return UploadResult{Success: true, URL: uploaded.SecureURL, PublicID: publicID}
}

// ImageURL returns the deterministic delivery URL for a year/month slot,
// whether or not anything has been uploaded there yet.
func (c *Client) ImageURL(year, month int) string {
	if !c.Configured() || month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%s/%s/image/upload/%s", c.deliveryBase(), c.CloudName, c.publicID(year, month))
}

func (c *Client) publicID(year, month int) string {
	return fmt.Sprintf("%s/%d/%s", c.Folder, year, monthNames[month-1])
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.cloudinary.com"
}

func (c *Client) deliveryBase() string {
	if c.DeliveryBase != "" {
		return c.DeliveryBase
	}
	return "https://res.cloudinary.com"
}
