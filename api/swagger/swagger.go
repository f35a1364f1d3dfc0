package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Media Library API",
        "description": "Family photo and video library: ingestion, streaming, tags, comments and catalog export.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Media", "description": "Catalog, ingestion and metadata"},
        {"name": "Streaming", "description": "Byte range playback and downloads"},
        {"name": "Tags", "description": "Shared labels on media"},
        {"name": "Comments", "description": "Notes on media"},
        {"name": "Observability", "description": "Counters and probes"}
    ],
    "paths": {
        "/media": {
            "get": {
                "tags": ["Media"],
                "summary": "List media visible to the caller",
                "parameters": [
                    {"name": "captured_from", "in": "query", "type": "string"},
                    {"name": "captured_to", "in": "query", "type": "string"},
                    {"name": "tag_ids", "in": "query", "type": "string", "description": "Tag IDs, media carrying any of them match"},
                    {"name": "source_kind", "in": "query", "type": "string"},
                    {"name": "tape_number", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Media"],
                "summary": "Register media without bytes (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateMediaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate tape number", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/upload": {
            "post": {
                "tags": ["Media"],
                "summary": "Upload a photo or video",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "kind", "in": "formData", "type": "string"},
                    {"name": "source_kind", "in": "formData", "type": "string"},
                    {"name": "title", "in": "formData", "type": "string"},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "tape_number", "in": "formData", "type": "string"},
                    {"name": "tags", "in": "formData", "type": "string"},
                    {"name": "captured_at", "in": "formData", "type": "string"},
                    {"name": "visibility", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate content", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/export": {
            "get": {
                "tags": ["Media"],
                "summary": "Export the catalog as CSV or PDF (admin)",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/media/{id}": {
            "get": {
                "tags": ["Media"],
                "summary": "Get media detail",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Media"],
                "summary": "Edit media metadata",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMediaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Media"],
                "summary": "Soft delete media",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/media/{id}/share-link": {
            "get": {
                "tags": ["Media"],
                "summary": "Create an anonymous stream link",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/{id}/stream": {
            "get": {
                "tags": ["Streaming"],
                "summary": "Stream media",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "Range", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Full body", "schema": {"type": "file"}},
                    "206": {"description": "Partial content", "schema": {"type": "file"}},
                    "416": {"description": "Range not satisfiable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/{id}/download": {
            "get": {
                "tags": ["Streaming"],
                "summary": "Download media",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/public/media/{id}/stream": {
            "get": {
                "tags": ["Streaming"],
                "summary": "Stream media through a share link",
                "security": [],
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "token", "in": "query", "type": "string", "required": true},
                    {"name": "Range", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Full body", "schema": {"type": "file"}},
                    "206": {"description": "Partial content", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/{id}/tags": {
            "get": {
                "tags": ["Tags"],
                "summary": "List tags on media",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tags"],
                "summary": "Tag media",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddTagRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already tagged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/{id}/tags/{tagId}": {
            "delete": {
                "tags": ["Tags"],
                "summary": "Remove a tag from media",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "tagId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/media/{id}/comments": {
            "get": {
                "tags": ["Comments"],
                "summary": "List comments, newest first",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Comments"],
                "summary": "Comment on media",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/media/{id}/comments/{commentId}": {
            "delete": {
                "tags": ["Comments"],
                "summary": "Delete a comment",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "commentId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/sources": {
            "get": {
                "tags": ["Media"],
                "summary": "List configured media sources",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Observability"],
                "summary": "Current identity",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Service counters (admin)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateMediaRequest": {
            "type": "object",
            "required": ["kind", "source_kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["PHOTO", "VIDEO"]},
                "source_kind": {"type": "string", "enum": ["VIDEOTAPE", "ICLOUD", "GOOGLE_PHOTOS", "GOOGLE_DRIVE", "GUEST_UPLOAD", "USER_UPLOAD"]},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "tape_number": {"type": "string"},
                "source_ref": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "captured_at": {"type": "string", "format": "date-time"},
                "duration_sec": {"type": "integer"},
                "visibility": {"type": "string", "enum": ["PRIVATE", "AUTHED", "LINK"]}
            }
        },
        "UpdateMediaRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "visibility": {"type": "string", "enum": ["PRIVATE", "AUTHED", "LINK"]},
                "captured_at": {"type": "string", "format": "date-time"}
            }
        },
        "AddTagRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"}
            }
        },
        "AddCommentRequest": {
            "type": "object",
            "required": ["body"],
            "properties": {
                "body": {"type": "string", "maxLength": 5000}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
