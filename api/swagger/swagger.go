package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Achievement API",
        "description": "Composite score and badge tier engine",
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
        {"name": "Authentication", "description": "Login and caller identity"},
        {"name": "Scores", "description": "Score profiles and the ranked scoreboard"},
        {"name": "Items", "description": "Challenge and mastery items with their questions"},
        {"name": "Submissions", "description": "Graded single attempts"},
        {"name": "Academic", "description": "Yearly grade records"},
        {"name": "Activities", "description": "Seminars and extracurricular activities"},
        {"name": "Administration", "description": "Weights and recomputation"},
        {"name": "Exports", "description": "Scoreboard exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/me/score": {
            "get": {
                "tags": ["Scores"],
                "summary": "Get the caller's score profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScoreProfileEnvelope"}},
                    "503": {"description": "Storage temporarily unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/score": {
            "get": {
                "tags": ["Scores"],
                "summary": "Get a student's score profile",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ScoreProfileEnvelope"}},
                    "404": {"description": "Unknown student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scoreboard": {
            "get": {
                "tags": ["Scores"],
                "summary": "Ranked scoreboard",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tier", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items": {
            "get": {
                "tags": ["Items"],
                "summary": "List items",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "tag", "in": "query", "type": "string"},
                    {"name": "year_level", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Items"],
                "summary": "Create an item",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateItemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/items/{id}/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit an attempt",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAttemptRequest"}}
                ],
                "responses": {
                    "201": {"description": "Graded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Item has no questions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/academic": {
            "put": {
                "tags": ["Academic"],
                "summary": "Upsert a student's academic record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcademicRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities": {
            "post": {
                "tags": ["Activities"],
                "summary": "Record an activity",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordActivityRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/weights/{category}": {
            "put": {
                "tags": ["Administration"],
                "summary": "Change a category weight",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "category", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetWeightRequest"}}
                ],
                "responses": {
                    "202": {"description": "Recompute scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid weight", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Weight stored but the sweep was deferred", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/recompute": {
            "post": {
                "tags": ["Administration"],
                "summary": "Schedule a recompute for every student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/exports/scoreboard": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export the scoreboard",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportScoreboardRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ScoreProfile": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "academic": {"type": "string"},
                "challenges": {"type": "string"},
                "mastery": {"type": "string"},
                "seminars": {"type": "string"},
                "extracurricular": {"type": "string"},
                "composite": {"type": "string"},
                "tier": {"type": "string"},
                "degraded": {"type": "array", "items": {"type": "string"}},
                "config_version": {"type": "integer"},
                "computed_at": {"type": "string", "format": "date-time"},
                "stale": {"type": "boolean"}
            }
        },
        "ScoreProfileEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ScoreProfile"},
                "meta": {"type": "object"}
            }
        },
        "Question": {
            "type": "object",
            "required": ["prompt", "answer_key"],
            "properties": {
                "position": {"type": "integer"},
                "prompt": {"type": "string"},
                "points": {"type": "integer"},
                "answer_key": {"type": "string"}
            }
        },
        "CreateItemRequest": {
            "type": "object",
            "required": ["kind", "title", "year_level"],
            "properties": {
                "kind": {"type": "string", "enum": ["CHALLENGE", "MASTERY"]},
                "title": {"type": "string"},
                "tag": {"type": "string", "enum": ["C", "CPP", "JAVA", "PYTHON", "JAVASCRIPT"]},
                "year_level": {"type": "integer"},
                "active": {"type": "boolean"},
                "not_before": {"type": "string", "format": "date-time"},
                "expires_at": {"type": "string", "format": "date-time"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/Question"}}
            }
        },
        "SubmitAttemptRequest": {
            "type": "object",
            "required": ["answers"],
            "properties": {
                "answers": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "AcademicRecordRequest": {
            "type": "object",
            "properties": {
                "year1": {"type": "string"},
                "year2": {"type": "string"},
                "year3": {"type": "string"},
                "year4": {"type": "string"}
            }
        },
        "RecordActivityRequest": {
            "type": "object",
            "required": ["student_id", "category", "title", "occurred_at"],
            "properties": {
                "student_id": {"type": "string"},
                "category": {"type": "string", "enum": ["SEMINAR", "EXTRACURRICULAR"]},
                "title": {"type": "string"},
                "points": {"type": "string"},
                "verified": {"type": "boolean"},
                "occurred_at": {"type": "string", "format": "date-time"}
            }
        },
        "SetWeightRequest": {
            "type": "object",
            "required": ["weight"],
            "properties": {
                "weight": {"type": "string"}
            }
        },
        "ExportScoreboardRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]},
                "tier": {"type": "string"}
            }
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
