package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Oficios API",
        "description": "Request and response lifecycle for official letters with registry cross-references",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Requests", "description": "Incoming requests and the persons they name"},
        {"name": "Responses", "description": "Numbered responses, finalization and letters"},
        {"name": "CrossReferences", "description": "Registry lookups"},
        {"name": "Catalogs", "description": "Cascading catalog selects"},
        {"name": "Dashboard", "description": "Lifecycle statistics"}
    ],
    "paths": {
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "pending,in_progress,answered"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Requests"],
                "summary": "File a request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate tracking number", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get request detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Requests"],
                "summary": "Edit a request and its persons",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertRequestRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "409": {"description": "Invalid state"}}
            },
            "delete": {
                "tags": ["Requests"],
                "summary": "Delete an unanswered request",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "409": {"description": "Invalid state"}}
            }
        },
        "/requests/{id}/responses": {
            "post": {
                "tags": ["Responses"],
                "summary": "Open the draft response of a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateResponseRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "409": {"description": "Request already answered"}}
            }
        },
        "/responses": {
            "get": {
                "tags": ["Responses"],
                "summary": "List responses",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "draft,signed,sent"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/responses/{id}": {
            "get": {
                "tags": ["Responses"],
                "summary": "Get a response with its request and results",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Responses"],
                "summary": "Edit a draft response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateResponseRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Responses"],
                "summary": "Discard a draft response",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/responses/{id}/finalize": {
            "post": {
                "tags": ["Responses"],
                "summary": "Sign or send a draft response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FinalizeResponseRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/responses/{id}/send": {
            "post": {
                "tags": ["Responses"],
                "summary": "Mark a signed response as sent",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/responses/{id}/pdf": {
            "get": {
                "tags": ["Responses"],
                "summary": "Render the response letter",
                "produces": ["application/pdf"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "PDF document", "schema": {"type": "file"}}}
            }
        },
        "/cross-references/preview": {
            "post": {
                "tags": ["CrossReferences"],
                "summary": "Check candidates against the registry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreviewRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/flagged-persons/{id}/history": {
            "get": {
                "tags": ["CrossReferences"],
                "summary": "Recent matches of a flagged person",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/institutions/{id}/units": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "Active units of an institution",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/units/{id}/agents": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "Active agents of a unit",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Lifecycle statistics and recent activity",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "RequestedPersonInput": {
            "type": "object",
            "required": ["firstName", "lastName", "nationalId"],
            "properties": {
                "id": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "nationalId": {"type": "string"},
                "birthDate": {"type": "string", "format": "date"}
            }
        },
        "UpsertRequestRequest": {
            "type": "object",
            "required": ["receivedAt", "institutionId", "agentId", "persons"],
            "properties": {
                "trackingNumber": {"type": "string"},
                "receivedAt": {"type": "string", "format": "date"},
                "institutionId": {"type": "string"},
                "unitId": {"type": "string"},
                "agentId": {"type": "string"},
                "crimeTypeId": {"type": "string"},
                "offendedParty": {"type": "string"},
                "observations": {"type": "string"},
                "persons": {"type": "array", "items": {"$ref": "#/definitions/RequestedPersonInput"}}
            }
        },
        "CreateResponseRequest": {
            "type": "object",
            "required": ["reviewerId", "responseDate"],
            "properties": {
                "reviewerId": {"type": "string"},
                "responseDate": {"type": "string", "format": "date"},
                "content": {"type": "string"}
            }
        },
        "FinalizeResponseRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["signed", "sent"]}
            }
        },
        "PreviewCandidate": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "nationalId": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"}
            }
        },
        "PreviewRequest": {
            "type": "object",
            "properties": {
                "candidates": {"type": "array", "items": {"$ref": "#/definitions/PreviewCandidate"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
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
