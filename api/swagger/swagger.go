package swagger

import (
	"strings"

	"github.com/swaggo/swag"
)

const basePathPlaceholder = "{{.BasePath}}"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "StudyVault API",
        "description": "Upload, organise and share PDF study notes",
        "version": "1.0.0"
    },
    "basePath": "{{.BasePath}}",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Admin login"},
        {"name": "Notes", "description": "Note catalog and PDF retrieval"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Admin login",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/AccessToken"}},
                    "400": {"description": "Missing password", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Wrong password", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/categories": {
            "get": {
                "tags": ["Notes"],
                "summary": "List note categories",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/CategoriesResponse"}}}
            }
        },
        "/notes/upload": {
            "post": {
                "tags": ["Notes"],
                "summary": "Upload a PDF note",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "formData", "name": "title", "type": "string", "required": true},
                    {"in": "formData", "name": "description", "type": "string"},
                    {"in": "formData", "name": "category", "type": "string", "required": true},
                    {"in": "formData", "name": "file", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/UploadNoteResponse"}},
                    "400": {"description": "Invalid category or not a PDF"},
                    "401": {"description": "Invalid or expired token"},
                    "403": {"description": "Not authenticated as admin"},
                    "413": {"description": "Upload too large"}
                }
            }
        },
        "/notes": {
            "get": {
                "tags": ["Notes"],
                "summary": "List notes",
                "parameters": [
                    {"in": "query", "name": "category", "type": "string"},
                    {"in": "query", "name": "sort_by", "type": "string", "enum": ["date_desc", "date_asc", "name_asc", "name_desc", "category", "custom"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Note"}}}}
            }
        },
        "/notes/{id}": {
            "get": {
                "tags": ["Notes"],
                "summary": "Get a note",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Note"}},
                    "404": {"description": "Note not found"}
                }
            },
            "put": {
                "tags": ["Notes"],
                "summary": "Update note metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateNoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/MessageBody"}},
                    "400": {"description": "Invalid category"},
                    "404": {"description": "Note not found"}
                }
            },
            "delete": {
                "tags": ["Notes"],
                "summary": "Delete a note and its PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/MessageBody"}},
                    "404": {"description": "Note not found"}
                }
            }
        },
        "/pdf/{blob_id}": {
            "get": {
                "tags": ["Notes"],
                "summary": "Download a PDF by blob id or share link",
                "produces": ["application/pdf"],
                "parameters": [{"in": "path", "name": "blob_id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "PDF bytes", "schema": {"type": "file"}},
                    "404": {"description": "PDF not found"}
                }
            }
        },
        "/export/notes": {
            "get": {
                "tags": ["Notes"],
                "summary": "Export the note listing",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "category", "type": "string"},
                    {"in": "query", "name": "sort_by", "type": "string"}
                ],
                "responses": {"200": {"description": "Rendered listing", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {"password": {"type": "string"}}
        },
        "UpdateNoteRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "order": {"type": "integer"}
            }
        },
        "Note": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category": {"type": "string"},
                "pdf_file_id": {"type": "string"},
                "pdf_filename": {"type": "string"},
                "upload_date": {"type": "string", "format": "date-time"},
                "share_link": {"type": "string"},
                "order": {"type": "integer"}
            }
        },
        "AccessToken": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "CategoriesResponse": {
            "type": "object",
            "properties": {"categories": {"type": "array", "items": {"type": "string"}}}
        },
        "UploadNoteResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "note_id": {"type": "string"}
            }
        },
        "MessageBody": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "code": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct {
	basePath string
}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return strings.Replace(docTemplate, basePathPlaceholder, s.basePath, 1)
}

var doc = &swaggerDoc{basePath: "/api"}

// SetBasePath points the documented routes at the configured API prefix.
func SetBasePath(prefix string) {
	if prefix == "" {
		prefix = "/"
	}
	doc.basePath = prefix
}

func init() {
	swag.Register(swag.Name, doc)
}
