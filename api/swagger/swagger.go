package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Fitness Admin API",
        "description": "Admin console for the company fitness challenge",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Registrations", "description": "Signup and admin approval queue"},
        {"name": "Exceptions", "description": "KPI exception requests and review"},
        {"name": "Penalties", "description": "KPI actuals and penalty reporting"},
        {"name": "Notifications", "description": "In-app notification feed"},
        {"name": "Dashboard", "description": "Admin summary"},
        {"name": "Metrics", "description": "Runtime metrics"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Register a new member account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/registrations/pending": {
            "get": {
                "tags": ["Registrations"],
                "summary": "List registrations awaiting review",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/{id}/approve": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Approve a pending registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/registrations/{id}/reject": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Reject a pending registration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/exceptions": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "List KPI exception requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exceptions"],
                "summary": "Submit a KPI exception request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExceptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exceptions/stats": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "Aggregate exception statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exceptions/preview": {
            "post": {
                "tags": ["Exceptions"],
                "summary": "Dry-run the target adjustment calculator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreviewAdjustmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exceptions/{id}": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "Fetch a single exception request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/exceptions/{id}/approve": {
            "post": {
                "tags": ["Exceptions"],
                "summary": "Approve a pending exception request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveExceptionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/exceptions/{id}/reject": {
            "post": {
                "tags": ["Exceptions"],
                "summary": "Reject a pending exception request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/users/{id}/active-exception": {
            "get": {
                "tags": ["Exceptions"],
                "summary": "Look up a user's active exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/kpi/actuals": {
            "put": {
                "tags": ["Penalties"],
                "summary": "Record a member's distances for a month",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertKPIActualsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties/users/{id}": {
            "get": {
                "tags": ["Penalties"],
                "summary": "Compute one member's penalty for a period",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties/report": {
            "get": {
                "tags": ["Penalties"],
                "summary": "Monthly penalty report across all members",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/penalties/report/export": {
            "get": {
                "tags": ["Penalties"],
                "summary": "Export the monthly penalty report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/unread-count": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Count the caller's unread notifications",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Admin dashboard summary for the current month",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/snapshot": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated runtime metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "full_name": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "CreateExceptionRequest": {
            "type": "object",
            "required": ["user_id", "exception_type", "adjustment_type", "reason", "start_date", "end_date"],
            "properties": {
                "user_id": {"type": "string"},
                "exception_type": {"type": "string", "enum": ["INJURY", "SICKNESS", "BUSINESS_TRIP", "FAMILY_EVENT", "PREGNANCY", "SWAP", "OTHER"]},
                "adjustment_type": {"type": "string", "enum": ["REDUCTION", "EXEMPTION", "EXTENSION", "RUN_ONLY", "SWIM_ONLY", "CUSTOM"]},
                "reason": {"type": "string"},
                "evidence": {"type": "string"},
                "notes": {"type": "string"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "month": {"type": "integer"},
                "year": {"type": "integer"},
                "precompute": {"type": "boolean"}
            }
        },
        "ApproveExceptionRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "PreviewAdjustmentRequest": {
            "type": "object",
            "required": ["exception_type", "adjustment_type"],
            "properties": {
                "original": {"$ref": "#/definitions/KPITargets"},
                "exception_type": {"type": "string"},
                "adjustment_type": {"type": "string"},
                "duration_days": {"type": "integer"}
            }
        },
        "UpsertKPIActualsRequest": {
            "type": "object",
            "required": ["user_id", "year", "month"],
            "properties": {
                "user_id": {"type": "string"},
                "year": {"type": "integer"},
                "month": {"type": "integer"},
                "run_actual_km": {"type": "number"},
                "swim_actual_km": {"type": "number"}
            }
        },
        "KPITargets": {
            "type": "object",
            "properties": {
                "run": {"type": "number"},
                "swim": {"type": "number"}
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
