package notionexport

import (
	"github.com/jomei/notionapi"

	"spendtrack/internal/domain"
)

// Property names in the target Notion database.
const (
	propItem     = "Item"
	propAmount   = "Amount"
	propCategory = "Category"
	propRecordID = "Record ID"
	propLogged   = "Logged"
)

// RecordToNotionProperties maps one ledger record to Notion page
// properties. The record id is stored on the page so later syncs can
// detect pages that already exist.
func RecordToNotionProperties(r domain.Record) notionapi.Properties {
	props := notionapi.Properties{
		propItem: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: r.Item},
				},
			},
		},
		propAmount: notionapi.NumberProperty{
			Number: r.Amount,
		},
		propCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: r.Category},
		},
		propRecordID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: r.ID},
				},
			},
		},
	}

	if !r.CreatedAt.IsZero() {
		logged := notionapi.Date(r.CreatedAt)
		props[propLogged] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &logged},
		}
	}

	return props
}

// RecordIDFromPage extracts the ledger record id stored on a Notion page,
// or "" when the page carries none.
func RecordIDFromPage(page notionapi.Page) string {
	prop, ok := page.Properties[propRecordID]
	if !ok {
		return ""
	}
	rich, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rich.RichText) == 0 {
		return ""
	}
	return rich.RichText[0].PlainText
}
