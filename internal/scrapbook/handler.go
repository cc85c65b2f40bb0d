package scrapbook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cottagebook/internal/media"
	"cottagebook/internal/store"
	"cottagebook/pkg/models"
)

// Year bounds enforced at this boundary. The store itself trusts callers.
const (
	MinYear = 1900
	MaxYear = 2100
)

type Handler struct {
	Store    *store.Store
	Uploader *media.Client // nil or unconfigured disables uploads
	BaseURL  string        // public base URL for guest links
}

func NewHandler(st *store.Store, uploader *media.Client, baseURL string) *Handler {
	return &Handler{Store: st, Uploader: uploader, BaseURL: strings.TrimRight(baseURL, "/")}
}

// RegisterRoutes splits the surface into the read-only view (owner or
// guest) and the mutation API, which the caller wraps in guest and auth
// middleware.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.GET("/scrapbooks", h.list)
	public.GET("/scrapbooks/current", h.current)
	public.GET("/share-link", h.shareLink)
	public.GET("/export", h.export)
	public.GET("/media/image-url", h.imageURL)

	protected.POST("/scrapbooks", h.createYear)
	protected.DELETE("/scrapbooks/:year", h.deleteYear)
	protected.PUT("/scrapbooks/current", h.selectYear)
	protected.POST("/scrapbooks/current/photos", h.addPhoto)
	protected.DELETE("/scrapbooks/current/photos/:photo_id", h.removePhoto)
	protected.PUT("/scrapbooks/current/song", h.setSong)
	protected.DELETE("/scrapbooks/current/song", h.removeSong)
	protected.POST("/media/photos", h.uploadPhoto)
}

func (h *Handler) list(c *gin.Context) {
	var currentYear any
	if y, ok := h.Store.CurrentYear(); ok {
		currentYear = y
	}
	c.JSON(http.StatusOK, gin.H{
		"current_year": currentYear,
		"scrapbooks":   h.Store.Scrapbooks(),
	})
}

func (h *Handler) current(c *gin.Context) {
	// A cursor pointing at a deleted or never-created year is a normal
	// state, answered with null rather than an error.
	c.JSON(http.StatusOK, gin.H{"scrapbook": h.Store.CurrentScrapbook()})
}

type createYearReq struct {
	Year int `json:"year"`
}

func (h *Handler) createYear(c *gin.Context) {
	var req createYearReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.Year < MinYear || req.Year > MaxYear {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear),
		})
		return
	}
	if h.Store.HasYear(req.Year) {
		c.JSON(http.StatusConflict, gin.H{"error": "year already exists"})
		return
	}

	h.Store.CreateYear(req.Year)
	c.JSON(http.StatusCreated, gin.H{"scrapbook": h.Store.CurrentScrapbook()})
}

func (h *Handler) deleteYear(c *gin.Context) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param("year")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	if !h.Store.HasYear(year) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.Store.DeleteYear(year)

	var currentYear any
	if y, ok := h.Store.CurrentYear(); ok {
		currentYear = y
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "current_year": currentYear})
}

type selectYearReq struct {
	Year int `json:"year"`
}

func (h *Handler) selectYear(c *gin.Context) {
	var req selectYearReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	// Selecting a year that does not exist is allowed; downstream reads
	// just see no current scrapbook.
	h.Store.SelectYear(req.Year)
	c.JSON(http.StatusOK, gin.H{"scrapbook": h.Store.CurrentScrapbook()})
}

type addPhotoReq struct {
	URL   string `json:"url"`
	Month int    `json:"month"`
	Title string `json:"title"`
}

func (h *Handler) addPhoto(c *gin.Context) {
	var req addPhotoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}
	if req.Month < 1 || req.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return
	}

	current := h.Store.CurrentScrapbook()
	if current == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no year selected"})
		return
	}

	// One photo per month: drop the existing slot before adding. The store
	// does not deduplicate; that responsibility sits here.
	for _, p := range current.Photos {
		if p.Month == req.Month {
			h.Store.RemovePhoto(p.ID)
			break
		}
	}

	photo := models.Photo{
		ID:         fmt.Sprintf("photo-%d-%d", req.Month, time.Now().UnixMilli()),
		URL:        req.URL,
		Month:      req.Month,
		Title:      strings.TrimSpace(req.Title),
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	h.Store.AddPhoto(photo)

	c.JSON(http.StatusCreated, gin.H{"photo": photo})
}

func (h *Handler) removePhoto(c *gin.Context) {
	photoID := strings.TrimSpace(c.Param("photo_id"))
	if photoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo_id required"})
		return
	}
	if h.Store.CurrentScrapbook() == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no year selected"})
		return
	}

	// Removing a photo that is already gone is not an error.
	h.Store.RemovePhoto(photoID)
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

type setSongReq struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (h *Handler) setSong(c *gin.Context) {
	var req setSongReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	videoID := ExtractVideoID(req.URL)
	if videoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid YouTube URL"})
		return
	}

	if h.Store.CurrentScrapbook() == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no year selected"})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Scrapbook Song"
	}

	song := models.Song{
		VideoID: videoID,
		Title:   title,
		URL:     req.URL,
		AddedAt: time.Now().UTC().Format(time.RFC3339),
	}
	h.Store.SetSong(song)

	c.JSON(http.StatusOK, gin.H{"song": song})
}

func (h *Handler) removeSong(c *gin.Context) {
	if h.Store.CurrentScrapbook() == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no year selected"})
		return
	}
	h.Store.RemoveSong()
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// shareLink builds the read-only guest URL. Pure string templating; no
// state is created or stored for a link.
func (h *Handler) shareLink(c *gin.Context) {
	link := h.BaseURL + "/?guest=true"
	if y := strings.TrimSpace(c.Query("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		link += fmt.Sprintf("&year=%d", year)
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// export serves the live document snapshot as a downloadable JSON file, the
// manual affordance for committing the document through an out-of-band
// channel when no remote write token is configured.
func (h *Handler) export(c *gin.Context) {
	data, err := json.MarshalIndent(h.Store.Snapshot(), "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="scrapbooks.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	if !h.Uploader.Configured() {
		c.JSON(http.StatusOK, media.UploadResult{Error: "media uploads not configured"})
		return
	}

	year := parseInt(c.PostForm("year"), 0)
	month := parseInt(c.PostForm("month"), 0)
	if year < MinYear || year > MaxYear {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear)})
		return
	}
	if month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1-12"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open upload failed"})
		return
	}
	defer f.Close()

	// The result never touches the store; the client follows up with
	// POST /scrapbooks/current/photos carrying the resolved URL.
	result := h.Uploader.Upload(c.Request.Context(), f, fh.Filename, year, month)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) imageURL(c *gin.Context) {
	year := parseInt(c.Query("year"), 0)
	month := parseInt(c.Query("month"), 0)
	if year == 0 || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and month (1-12) required"})
		return
	}
	if !h.Uploader.Configured() {
		c.JSON(http.StatusOK, gin.H{"url": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.Uploader.ImageURL(year, month)})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
