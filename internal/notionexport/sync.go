package notionexport

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"spendtrack/internal/domain"
	"spendtrack/internal/logger"
)

// SyncRecords mirrors the given ledger records into a Notion database.
// The ledger is the source of truth: pages whose record id is missing
// from the set (or that carry no record id at all) are archived, and
// pages are created for records that have none yet. When dryRun is set
// the sync only logs what it would do.
func SyncRecords(ctx context.Context, notionClient NotionService, databaseID string, records []domain.Record, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("record_count", len(records)).
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	validIDs := make(map[string]bool)
	for _, r := range records {
		validIDs[r.ID] = true
	}

	pages, err := queryAllPages(ctx, notionClient, databaseID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existingIDs := make(map[string]bool)
	for _, page := range pages {
		if id := RecordIDFromPage(page); id != "" {
			existingIDs[id] = true
		}
	}

	// Archive stale pages first so a re-created record never races its
	// old page.
	var deleted int
	for _, page := range pages {
		id := RecordIDFromPage(page)
		if id != "" && validIDs[id] {
			continue
		}

		if dryRun {
			log.Info().
				Str("record_id", id).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}

		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("record_id", id).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		log.Info().
			Str("record_id", id).
			Str("page_id", string(page.ID)).
			Msg("Archived stale Notion page")
		deleted++
	}

	var created, skipped int
	for _, r := range records {
		if existingIDs[r.ID] {
			skipped++
			continue
		}

		if dryRun {
			log.Info().
				Str("record_id", r.ID).
				Str("item", r.Item).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := RecordToNotionProperties(r)
		page, err := notionClient.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("record_id", r.ID).
				Str("item", r.Item).
				Msg("Failed to create Notion page")
			continue
		}
		log.Info().
			Str("record_id", r.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("created", created).
		Int("deleted", deleted).
		Int("skipped", skipped).
		Int("total", len(records)).
		Msg("Ledger sync completed")

	return nil
}

// queryAllPages queries all pages from a Notion database, following
// pagination cursors.
func queryAllPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
