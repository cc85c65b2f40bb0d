package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cottagebook/internal/persist"
	"cottagebook/pkg/database"
	"cottagebook/pkg/utils"
)

// Loads the document through the configured persistence strategy and writes
// it to a JSON file, ready to be committed out of band.
func main() {
	var (
		out = flag.String("out", "scrapbooks.json", "output path for the exported document")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

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
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc, err := docStore.Load(ctx)
	if err != nil {
		log.Fatalf("load document failed: %v", err)
	}

	if err := persist.WriteFile(*out, doc); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	log.Printf("exported %d scrapbook(s) to %s", len(doc.Scrapbooks), *out)
}
