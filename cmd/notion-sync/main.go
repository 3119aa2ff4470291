package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"spendtrack/config"
	"spendtrack/internal/identity"
	"spendtrack/internal/logger"
	"spendtrack/internal/notionexport"
	"spendtrack/internal/storage"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)

	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to Notion")
	flag.Parse()

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var (
		store  storage.Store
		userID string
	)

	if cfg.CloudMode() {
		mongoStore, err := storage.NewMongoStore(ctx, cfg.MongoURI, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to document store")
		}
		store = mongoStore

		provider := identity.NewCloudProvider(cfg.DataDir, mongoStore, log)
		userIDs := make(chan string, 1)
		cancelIdentity, err := provider.Init(ctx, func(id string) { userIDs <- id })
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize identity")
		}
		defer cancelIdentity()

		userID = <-userIDs
		if userID == "" {
			log.Fatal().Msg("Anonymous sign-in failed")
		}
	} else {
		fileStore, err := storage.NewFileStore(cfg.DataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open local store")
		}
		store = fileStore
		userID = identity.LocalUserID
	}
	defer store.Close(ctx)

	// The sync archives Notion pages for every record it does not see, so
	// a failed read must abort here rather than pose as an empty ledger.
	records, err := store.List(ctx, userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load records")
	}

	notionClient := notionexport.NewNotionClient(*notionToken)

	if err := notionexport.SyncRecords(ctx, notionClient, *notionDBID, records, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
