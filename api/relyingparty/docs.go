// Package relyingparty holds the Swagger document for the Persona demo
// relying party. It mirrors what swag init generates from the handler
// annotations in internal/relyingparty/http.
package relyingparty

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/persona"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Pings the token cache and the session backend.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/login": {
            "get": {
                "description": "Redirects to the Persona provider login unless the session is already logged in, in which case it redirects to next.",
                "tags": ["SSO"],
                "summary": "Start a Persona login",
                "parameters": [
                    {"type": "string", "description": "Local path to land on after login", "name": "next", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        },
        "/auth/callback": {
            "post": {
                "description": "Verifies the signed persona:payload against the pending handshake, then rotates the session id and redirects.",
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["SSO"],
                "summary": "Persona login callback",
                "parameters": [
                    {"type": "string", "description": "Base64 encoded signed login payload", "name": "persona:payload", "in": "formData", "required": true}
                ],
                "responses": {
                    "303": {"description": "See Other"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["SSO"],
                "summary": "Current login",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "description": "Clears the Persona login from the session and redirects to Persona's logout endpoint.",
                "tags": ["SSO"],
                "summary": "Log out",
                "responses": {
                    "302": {"description": "Found"}
                }
            }
        },
        "/api/presign": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a /files/ URL carrying expires and signature parameters.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Files"],
                "summary": "Presign a download link",
                "parameters": [
                    {"description": "File and optional expiry", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.PresignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.PresignResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        },
        "/files/{name}": {
            "get": {
                "description": "Requires a link produced by /api/presign.",
                "tags": ["Files"],
                "summary": "Download a file",
                "parameters": [
                    {"type": "string", "description": "File name", "name": "name", "in": "path", "required": true},
                    {"type": "integer", "description": "Unix expiry", "name": "expires", "in": "query", "required": true},
                    {"type": "string", "description": "HMAC-SHA256 signature", "name": "signature", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        },
        "/api/users/{gupid}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Look up a Persona user",
                "parameters": [
                    {"type": "string", "description": "Provider scoped id, e.g. google:123", "name": "gupid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/personasdk.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/httpx.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.HealthChecks": {
            "type": "object",
            "properties": {
                "sessions": {"type": "string"},
                "token_cache": {"type": "string"}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"$ref": "#/definitions/http.HealthChecks"},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "http.MeResponse": {
            "type": "object",
            "properties": {
                "guid": {"type": "string"},
                "gupid": {"type": "string"},
                "profile": {"type": "object", "additionalProperties": true},
                "redirect": {"type": "string"},
                "scopes": {"type": "array", "items": {"type": "string"}},
                "super_user": {"type": "boolean"}
            }
        },
        "http.PresignRequest": {
            "type": "object",
            "properties": {
                "expires": {"type": "string"},
                "file": {"type": "string"}
            }
        },
        "http.PresignResponse": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        },
        "httpx.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        },
        "personasdk.User": {
            "type": "object",
            "properties": {
                "_id": {"type": "string"},
                "created": {"type": "object", "additionalProperties": true},
                "guid": {"type": "string"},
                "gupids": {"type": "array", "items": {"type": "string"}},
                "profile": {"type": "object", "additionalProperties": true}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Persona access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Persona Demo Relying Party",
	Description:      "Example service using Persona for browser single sign-on, bearer token checks and presigned download links.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
