package dto

// UploadNoteRequest is the metadata part of the multipart upload form.
type UploadNoteRequest struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description"`
	Category    string `form:"category" validate:"required"`
}

// UpdateNoteRequest carries the optional fields of an admin edit.
type UpdateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Order       *int    `json:"order"`
}

// ListNotesQuery captures the listing query string.
type ListNotesQuery struct {
	Category string `form:"category"`
	SortBy   string `form:"sort_by"`
}

// UploadNoteResponse acknowledges a stored upload.
type UploadNoteResponse struct {
	Message string `json:"message"`
	NoteID  string `json:"note_id"`
}

// CategoriesResponse lists the fixed categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}
