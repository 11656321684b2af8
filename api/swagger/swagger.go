package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gym Slot Booking API",
        "description": "Weekly gym slot calendar with capacity-controlled bookings.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Sign-up, sign-in and token rotation"},
        {"name": "Calendar", "description": "Weekly slot grid"},
        {"name": "Bookings", "description": "Member bookings"},
        {"name": "Feedback", "description": "Member feedback"},
        {"name": "Announcements", "description": "Gym announcements"},
        {"name": "Admin", "description": "Slot control and rosters"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create a member account",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignUpRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/signin": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/admin/signin": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in as administrator",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not an administrator", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/signout": {
            "post": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Revoke a refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}],
                "responses": {"204": {"description": "Signed out"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "security": [{"BearerAuth": []}],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/calendar/week": {
            "get": {
                "tags": ["Calendar"],
                "security": [{"BearerAuth": []}],
                "summary": "Slots of the Monday-based week containing date",
                "parameters": [{"name": "date", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/slots": {
            "get": {
                "tags": ["Calendar"],
                "security": [{"BearerAuth": []}],
                "summary": "Slots for a set of dates",
                "parameters": [{"name": "date", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/slots/state": {
            "get": {
                "tags": ["Bookings"],
                "security": [{"BearerAuth": []}],
                "summary": "Current state of one slot",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "time_slot", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Slot not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/slots/counts": {
            "post": {
                "tags": ["Bookings"],
                "security": [{"BearerAuth": []}],
                "summary": "Active booking counts for slots",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingCountsRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/bookings": {
            "post": {
                "tags": ["Bookings"],
                "security": [{"BearerAuth": []}],
                "summary": "Book a slot",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBookingRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Slot not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot full, blocked or already booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Datastore unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/me": {
            "get": {
                "tags": ["Bookings"],
                "security": [{"BearerAuth": []}],
                "summary": "The caller's bookings",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "tags": ["Bookings"],
                "security": [{"BearerAuth": []}],
                "summary": "Cancel one of the caller's bookings",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/feedback": {
            "post": {
                "tags": ["Feedback"],
                "security": [{"BearerAuth": []}],
                "summary": "Submit feedback",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitFeedbackRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "security": [{"BearerAuth": []}],
                "summary": "Visible announcements",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/materialize": {
            "post": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Create missing slots for a date range",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MaterializeSlotsRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/toggle": {
            "post": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Toggle the blocked flag of a calendar cell",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleCellRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/{id}/toggle": {
            "post": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Toggle the blocked flag of a slot",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/{id}/blocked": {
            "put": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Set the blocked flag of a slot",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"blocked": {"type": "boolean"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/{id}/capacity": {
            "put": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Change slot capacity",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"capacity": {"type": "integer"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/{id}/bookings": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Users booked on a slot",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/slots/{id}/bookings/export": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Download the roster of a slot",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/admin/bookings": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Search bookings",
                "parameters": [
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "slot_id", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["active", "cancelled"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/bookings/day/{date}": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Users booked on a date, grouped by slot",
                "parameters": [{"name": "date", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/bookings/day/{date}/export": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Download the roster of a date",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "date", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/admin/feedback": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "List feedback",
                "parameters": [{"name": "status", "in": "query", "type": "string", "enum": ["new", "reviewed", "resolved"]}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/feedback/{id}/status": {
            "put": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Change feedback status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/announcements": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "All announcements",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Publish an announcement",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/announcements/{id}": {
            "get": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Get announcement",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Update an announcement",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Admin"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete an announcement",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}}
            }
        }
    },
    "definitions": {
        "SignUpRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "student_id": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {"refresh_token": {"type": "string"}}
        },
        "CreateBookingRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2025-09-01"},
                "time_slot": {"type": "string", "example": "5:00 - 6:00 AM"}
            }
        },
        "BookingCountsRequest": {
            "type": "object",
            "properties": {"slot_ids": {"type": "array", "items": {"type": "string"}}}
        },
        "MaterializeSlotsRequest": {
            "type": "object",
            "properties": {
                "from": {"type": "string"},
                "to": {"type": "string"},
                "capacity": {"type": "integer"}
            }
        },
        "ToggleCellRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "time_slot": {"type": "string"}
            }
        },
        "SubmitFeedbackRequest": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "message": {"type": "string"},
                "rating": {"type": "integer"}
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
