package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Manual Hub API",
        "description": "Versioned manual documentation with review workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Manuals", "description": "Manual lifecycle: create, submit, publish, rollback"},
        {"name": "Versions", "description": "Immutable version snapshots and previews"},
        {"name": "Reviews", "description": "Review queue and approval decisions"},
        {"name": "Collaborators", "description": "Per-manual access grants"},
        {"name": "Audit", "description": "Append-only action history"},
        {"name": "Taxonomy", "description": "Categories and tags"}
    ],
    "paths": {
        "/manuals": {
            "get": {
                "tags": ["Manuals"],
                "summary": "List manuals visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "categoryId", "in": "query", "type": "string"},
                    {"name": "tagId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Manuals"],
                "summary": "Create manual with an empty first version",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateManualRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/manuals/{slug}": {
            "get": {
                "tags": ["Manuals"],
                "summary": "Get manual",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Manuals"],
                "summary": "Update manual metadata",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateManualRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Manuals"],
                "summary": "Delete manual with all versions",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/manuals/{slug}/submit": {
            "post": {
                "tags": ["Manuals"],
                "summary": "Submit the current version for review",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A pending review already exists"}
                }
            }
        },
        "/manuals/{slug}/publish": {
            "post": {
                "tags": ["Manuals"],
                "summary": "Publish an approved version",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "version", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version not approved"}
                }
            }
        },
        "/manuals/{slug}/rollback": {
            "post": {
                "tags": ["Manuals"],
                "summary": "Roll back to an earlier version",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RollbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Version not found"}
                }
            }
        },
        "/manuals/{slug}/versions": {
            "get": {
                "tags": ["Versions"],
                "summary": "List versions, newest first",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Versions"],
                "summary": "Snapshot a block list as the next version",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateVersionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid block payload"},
                    "409": {"description": "Concurrent snapshot"}
                }
            }
        },
        "/manuals/{slug}/versions/{number}": {
            "get": {
                "tags": ["Versions"],
                "summary": "Get one version with its blocks",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/manuals/{slug}/versions/{number}/preview": {
            "get": {
                "tags": ["Versions"],
                "summary": "Render a version with resolved block types",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/manuals/{slug}/versions/{number}/export": {
            "get": {
                "tags": ["Versions"],
                "summary": "Download a version as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Document content"}
                }
            }
        },
        "/manuals/{slug}/collaborators": {
            "get": {
                "tags": ["Collaborators"],
                "summary": "List collaborators",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Collaborators"],
                "summary": "Grant access",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddCollaboratorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already a collaborator"}
                }
            }
        },
        "/manuals/{slug}/collaborators/{userId}": {
            "delete": {
                "tags": ["Collaborators"],
                "summary": "Revoke a grant",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "userId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/manuals/{slug}/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List the audit trail, newest first",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/manuals/{slug}/audit/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export the audit trail as CSV or a tabular PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "description": "csv (default) or pdf"}
                ],
                "responses": {
                    "200": {"description": "export content"},
                    "400": {"description": "Unknown format"}
                }
            }
        },
        "/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List review requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "manualId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reviews/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get review request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/reviews/{id}/approve": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Approve a pending review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided"}
                }
            }
        },
        "/reviews/{id}/reject": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Reject a pending review with feedback",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Feedback required"},
                    "409": {"description": "Already decided"}
                }
            }
        },
        "/categories": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Taxonomy"],
                "summary": "Create category",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertNameRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/categories/{id}": {
            "put": {
                "tags": ["Taxonomy"],
                "summary": "Rename category",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertNameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Taxonomy"],
                "summary": "Delete category",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/tags": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List tags",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Taxonomy"],
                "summary": "Create tag",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertNameRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tags/{id}": {
            "put": {
                "tags": ["Taxonomy"],
                "summary": "Rename tag",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertNameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Taxonomy"],
                "summary": "Delete tag",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "Manual": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "slug": {"type": "string"},
                "department": {"type": "string"},
                "category_id": {"type": "string"},
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED", "APPROVED", "REJECTED", "PUBLISHED"]},
                "created_by": {"type": "string"},
                "current_version_id": {"type": "string"},
                "published_version_id": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ManualVersion": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "manual_id": {"type": "string"},
                "version_number": {"type": "integer"},
                "changelog": {"type": "string"},
                "created_by": {"type": "string"},
                "is_published": {"type": "boolean"},
                "blocks": {"type": "array", "items": {"$ref": "#/definitions/ContentBlock"}},
                "created_at": {"type": "string"}
            }
        },
        "ContentBlock": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "order": {"type": "integer"},
                "type": {"type": "string", "enum": ["TEXT", "IMAGE", "LIST", "CHECKLIST", "TABLE", "VIDEO", "CODE", "QUOTE", "DIVIDER", "DIAGRAM", "TABS"]},
                "data": {"type": "object"}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "manual_id": {"type": "string"},
                "version_id": {"type": "string"},
                "submitted_by": {"type": "string"},
                "reviewer_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "feedback": {"type": "string"},
                "submitted_at": {"type": "string"},
                "decided_at": {"type": "string"}
            }
        },
        "CreateManualRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "department": {"type": "string"},
                "categoryId": {"type": "string"},
                "tagIds": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title"]
        },
        "UpdateManualRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "department": {"type": "string"},
                "categoryId": {"type": "string"},
                "tagIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateVersionRequest": {
            "type": "object",
            "properties": {
                "changelog": {"type": "string"},
                "blocks": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "type": {"type": "string"},
                            "data": {"type": "object"}
                        },
                        "required": ["type"]
                    }
                }
            }
        },
        "RollbackRequest": {
            "type": "object",
            "properties": {
                "versionNumber": {"type": "integer", "minimum": 1}
            },
            "required": ["versionNumber"]
        },
        "AddCollaboratorRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "role": {"type": "string", "enum": ["EDITOR", "VIEWER"]}
            },
            "required": ["userId", "role"]
        },
        "RejectReviewRequest": {
            "type": "object",
            "properties": {
                "feedback": {"type": "string"}
            },
            "required": ["feedback"]
        },
        "UpsertNameRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
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
