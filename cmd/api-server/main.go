package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cottagebook/internal/auth"
	"cottagebook/internal/media"
	"cottagebook/internal/persist"
	"cottagebook/internal/scrapbook"
	"cottagebook/internal/store"
	"cottagebook/pkg/database"
	"cottagebook/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// Persistence strategy: exactly one is active per deployment. The
	// remote strategy keeps the local store as its no-token fallback.
	local := persist.NewLocalStore(db)
	var docStore persist.Store = local
	if cfg.Storage == utils.StorageRemote {
		docStore = persist.NewRemoteStore(persist.RemoteConfig{
			Owner:  cfg.GitHub.Owner,
			Repo:   cfg.GitHub.Repo,
			Branch: cfg.GitHub.Branch,
			Path:   cfg.GitHub.Path,
			Token:  cfg.GitHub.Token,
		}, local)
		log.Printf("using remote document storage (%s/%s)", cfg.GitHub.Owner, cfg.GitHub.Repo)
	} else {
		log.Printf("using local document storage (%s)", dbCfg.Path)
	}

	st := store.New(docStore, store.WithDebounce(cfg.SaveDebounce()))
	defer st.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	st.Load(loadCtx)
	cancelLoad()
	if y, ok := st.CurrentYear(); ok {
		log.Printf("loaded %d scrapbook(s), selected year %d", len(st.Scrapbooks()), y)
	} else {
		log.Printf("no scrapbooks yet")
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": cfg.Storage})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
	})

	router.GET("/debug", func(c *gin.Context) {
		var currentYear any
		if y, ok := st.CurrentYear(); ok {
			currentYear = y
		}
		c.JSON(http.StatusOK, gin.H{
			"db":           dbCfg.Path,
			"storage":      cfg.Storage,
			"years":        len(st.Scrapbooks()),
			"current_year": currentYear,
		})
	})

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration(),
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Scrapbook surface: reads are open to owner and guest alike, every
	// mutation sits behind the guest guard plus owner auth.
	uploader := media.NewClient(cfg.Cloudinary.CloudName, cfg.Cloudinary.UploadPreset, cfg.Cloudinary.Folder)
	sbHandler := scrapbook.NewHandler(st, uploader, cfg.BaseURL)

	public := router.Group("/")
	protected := router.Group("/", auth.GuestGuard(), auth.RequireOwner(tokenSvc, authRepo))
	sbHandler.RegisterRoutes(public, protected)

	httpSrv := &http.Server{
		Addr:    cfg.Bind,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API server listening on %s", cfg.Bind)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	// Push out any edit still inside the debounce window.
	st.Flush()
	log.Println("server stopped")
}
