package models

import "time"

// Note is the metadata record for one uploaded PDF.
type Note struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	BlobID      string    `db:"blob_id" json:"pdf_file_id"`
	Filename    string    `db:"filename" json:"pdf_filename"`
	UploadedAt  time.Time `db:"upload_timestamp" json:"upload_date"`
	ShareToken  string    `db:"share_token" json:"share_link"`
	Order       int       `db:"sort_order" json:"order"`
}

// NoteSort selects the ordering of a note listing.
type NoteSort string

const (
	SortDateDesc NoteSort = "date_desc"
	SortDateAsc  NoteSort = "date_asc"
	SortNameAsc  NoteSort = "name_asc"
	SortNameDesc NoteSort = "name_desc"
	SortCategory NoteSort = "category"
	SortCustom   NoteSort = "custom"
)

// Known reports whether s is one of the supported sort keys.
func (s NoteSort) Known() bool {
	switch s {
	case SortDateDesc, SortDateAsc, SortNameAsc, SortNameDesc, SortCategory, SortCustom:
		return true
	}
	return false
}

// NoteFilter narrows a listing. An empty Category means every category.
type NoteFilter struct {
	Category string
	Sort     NoteSort
	Limit    int
}

// NoteChanges holds the optional fields of an admin update. Nil means untouched.
type NoteChanges struct {
	Title       *string
	Description *string
	Category    *string
	Order       *int
}

// Empty reports whether no field was supplied.
func (c NoteChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil && c.Order == nil
}

// AllCategories is the listing sentinel meaning "no category filter".
const AllCategories = "All"

var categories = []string{
	"Mathematics",
	"Science",
	"Computer Science",
	"Engineering",
	"Business",
	"Literature",
	"History",
	"Languages",
	"Arts",
	"Other",
}

// Categories returns the fixed category list in display order.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsValidCategory reports membership in the fixed category list.
func IsValidCategory(category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
