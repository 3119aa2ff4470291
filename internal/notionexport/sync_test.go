package notionexport

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"

	"spendtrack/internal/domain"
)

type mockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *mockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, properties)
}

func (m *mockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, req)
}

func (m *mockNotionService) DeletePage(ctx context.Context, pageID string) error {
	return m.DeletePageFunc(ctx, pageID)
}

func pageWithRecordID(pageID, recordID string) notionapi.Page {
	props := notionapi.Properties{}
	if recordID != "" {
		props[propRecordID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{PlainText: recordID},
			},
		}
	}
	return notionapi.Page{
		ID:         notionapi.ObjectID(pageID),
		Properties: props,
	}
}

func TestSyncRecords_CreatesMissingAndArchivesStale(t *testing.T) {
	records := []domain.Record{
		{ID: "rec-1", Item: "Coffee", Amount: 4.5, Category: "Food", CreatedAt: time.Now()},
		{ID: "rec-2", Item: "Taxi", Amount: 12, Category: "Transport", CreatedAt: time.Now()},
	}

	var created []string
	var archived []string

	mock := &mockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{
					pageWithRecordID("page-1", "rec-1"),
					pageWithRecordID("page-stale", "rec-gone"),
					pageWithRecordID("page-blank", ""),
				},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			title := properties[propItem].(notionapi.TitleProperty)
			created = append(created, title.Title[0].Text.Content)
			return &notionapi.Page{ID: "new-page"}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			archived = append(archived, pageID)
			return nil
		},
	}

	if err := SyncRecords(context.Background(), mock, "db", records, false); err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}

	if len(created) != 1 || created[0] != "Taxi" {
		t.Errorf("created = %v, want [Taxi]", created)
	}
	if len(archived) != 2 {
		t.Fatalf("archived = %v, want 2 pages", archived)
	}
	for _, id := range archived {
		if id != "page-stale" && id != "page-blank" {
			t.Errorf("archived unexpected page %q", id)
		}
	}
}

func TestSyncRecords_DryRunTouchesNothing(t *testing.T) {
	mock := &mockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{pageWithRecordID("page-stale", "rec-gone")},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Fatal("CreatePage called during dry run")
			return nil, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			t.Fatal("DeletePage called during dry run")
			return nil
		},
	}

	records := []domain.Record{{ID: "rec-new", Item: "Lunch", Amount: 9}}
	if err := SyncRecords(context.Background(), mock, "db", records, true); err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}
}

func TestSyncRecords_Pagination(t *testing.T) {
	calls := 0
	mock := &mockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if calls == 1 {
				if req.StartCursor != "" {
					t.Errorf("first query StartCursor = %q, want empty", req.StartCursor)
				}
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{pageWithRecordID("page-1", "rec-1")},
					HasMore:    true,
					NextCursor: "cursor-2",
				}, nil
			}
			if req.StartCursor != "cursor-2" {
				t.Errorf("second query StartCursor = %q, want cursor-2", req.StartCursor)
			}
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{pageWithRecordID("page-2", "rec-2")},
			}, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Fatal("CreatePage called for records that already have pages")
			return nil, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			t.Fatalf("DeletePage called for live page %s", pageID)
			return nil
		},
	}

	records := []domain.Record{{ID: "rec-1"}, {ID: "rec-2"}}
	if err := SyncRecords(context.Background(), mock, "db", records, false); err != nil {
		t.Fatalf("SyncRecords() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("QueryDatabase calls = %d, want 2", calls)
	}
}
