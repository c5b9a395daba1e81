// Package docs registers the OpenAPI document served at /swagger/doc.json
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/auth/token": {
            "post": {"tags": ["auth"], "summary": "Issue a caller identity token", "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/TokenResponse"}}, "404": {"description": "unknown user"}}}
        },
        "/shows": {
            "get": {"tags": ["shows"], "summary": "List active shows", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["shows"], "summary": "Create a show",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShowRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "invalid show"}}}
        },
        "/shows/nearby": {
            "get": {"tags": ["shows"], "summary": "Find active shows near a point",
                "parameters": [
                    {"in": "query", "name": "lat", "type": "number", "required": true},
                    {"in": "query", "name": "lng", "type": "number", "required": true},
                    {"in": "query", "name": "radius", "type": "number"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/shows/{id}": {
            "get": {"tags": ["shows"], "summary": "Get a show", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}}
        },
        "/shows/{id}/participants": {
            "get": {"tags": ["shows"], "summary": "List participants", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/shows/{id}/join": {
            "post": {"tags": ["shows"], "summary": "Join a show", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "too far from the venue"}, "409": {"description": "show not active"}}}
        },
        "/shows/{id}/leave": {
            "post": {"tags": ["shows"], "summary": "Leave a show", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/shows/{id}/queue": {
            "get": {"tags": ["queue"], "summary": "Get the rotation", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["queue"], "summary": "Join the rotation", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "already queued"}}}
        },
        "/shows/{id}/queue/order": {
            "put": {"tags": ["queue"], "summary": "Reorder the rotation (DJ)", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the DJ"}}}
        },
        "/shows/{id}/queue/current": {
            "put": {"tags": ["queue"], "summary": "Set the current singer (DJ)", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the DJ"}}}
        },
        "/shows/{id}/queue/{userId}": {
            "delete": {"tags": ["queue"], "summary": "Leave or remove from the rotation",
                "parameters": [{"$ref": "#/parameters/showId"}, {"in": "path", "name": "userId", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}}
        },
        "/shows/{id}/queue/{userId}/song": {
            "put": {"tags": ["queue"], "summary": "Set song timing (DJ)",
                "parameters": [{"$ref": "#/parameters/showId"}, {"in": "path", "name": "userId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/shows/{id}/chat": {
            "get": {"tags": ["chat"], "summary": "Chat history visible to the caller",
                "parameters": [{"$ref": "#/parameters/showId"}, {"in": "query", "name": "limit", "type": "integer"}, {"in": "query", "name": "offset", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["chat"], "summary": "Send a chat message", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"201": {"description": "Created"}}}
        },
        "/shows/{id}/announcements": {
            "get": {"tags": ["chat"], "summary": "Active announcements", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["chat"], "summary": "Send an announcement (DJ)", "parameters": [{"$ref": "#/parameters/showId"}],
                "responses": {"201": {"description": "Created"}}}
        }
    },
    "parameters": {
        "showId": {"in": "path", "name": "id", "type": "string", "required": true}
    },
    "definitions": {
        "TokenRequest": {"type": "object", "properties": {"userId": {"type": "string"}}},
        "TokenResponse": {"type": "object", "properties": {"token": {"type": "string"}, "userId": {"type": "string"}, "expiresAt": {"type": "string", "format": "date-time"}}},
        "CreateShowRequest": {"type": "object", "properties": {
            "name": {"type": "string"}, "description": {"type": "string"}, "djId": {"type": "string"},
            "startTime": {"type": "string", "format": "date-time"}, "endTime": {"type": "string", "format": "date-time"},
            "venueId": {"type": "string"}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Live Karaoke API",
	Description:      "Live karaoke show coordinator: admission, singer rotation and chat",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
