package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AidRelay API",
        "description": "Anonymous encrypted broadcast relay for mutual-aid help requests",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Directory", "description": "Public group directory"},
        {"name": "Broadcasts", "description": "Anonymous encrypted submissions"},
        {"name": "Invites", "description": "Per-group invite inbox"},
        {"name": "Audit", "description": "Tombstone ledger and exports"}
    ],
    "paths": {
        "/directory": {
            "get": {
                "tags": ["Directory"],
                "summary": "Look up listed groups by region and categories",
                "parameters": [
                    {"name": "region", "in": "query", "type": "string"},
                    {"name": "categories", "in": "query", "type": "string", "description": "Comma-separated help categories"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unknown category", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/directory/cache": {
            "delete": {
                "tags": ["Directory"],
                "summary": "Drop cached directory lookups after a listing change",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Invalidated"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/broadcasts": {
            "post": {
                "tags": ["Broadcasts"],
                "summary": "Submit an encrypted broadcast with its invite fan-out",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitBroadcastRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invites": {
            "get": {
                "tags": ["Invites"],
                "summary": "List the caller's live invites",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invites/{inviteId}": {
            "get": {
                "tags": ["Invites"],
                "summary": "Fetch one invite with its wrapped key",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "inviteId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Invites"],
                "summary": "Delete an invite and write its tombstone",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "inviteId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/invites/{inviteId}/ciphertext": {
            "get": {
                "tags": ["Invites"],
                "summary": "Fetch the broadcast ciphertext for an invite",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "inviteId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/invites/{inviteId}/decrypted": {
            "post": {
                "tags": ["Invites"],
                "summary": "Record a successful local decryption",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "inviteId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/tombstones": {
            "get": {
                "tags": ["Audit"],
                "summary": "Aggregate tombstone counts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "deletionType", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/exports": {
            "post": {
                "tags": ["Audit"],
                "summary": "Queue a tombstone export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/exports/{jobId}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Poll export status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/downloads/{token}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download a finished export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "SubmitBroadcastRequest": {
            "type": "object",
            "required": ["submissionId", "ciphertextPayload", "nonce", "region", "categories", "invites"],
            "properties": {
                "submissionId": {"type": "string", "format": "uuid"},
                "ciphertextPayload": {"type": "string", "description": "Base64 secretbox ciphertext"},
                "nonce": {"type": "string", "description": "Base64 24-byte nonce"},
                "region": {"type": "string"},
                "categories": {"type": "array", "items": {"type": "string"}},
                "invites": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/InvitePayload"}
                },
                "elapsed": {"type": "integer", "description": "Milliseconds spent composing"},
                "honeypot": {"type": "string", "description": "Must stay empty"}
            }
        },
        "InvitePayload": {
            "type": "object",
            "required": ["groupId", "wrappedKey"],
            "properties": {
                "groupId": {"type": "string"},
                "wrappedKey": {"type": "string", "description": "Base64 sealed content key"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "from": {"type": "string", "format": "date-time"},
                "to": {"type": "string", "format": "date-time"}
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
                "pagination": {"type": "object"},
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
