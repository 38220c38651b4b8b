// Package docs registers the OpenAPI document served under /swagger. It is
// maintained alongside the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/artifacts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["artifacts"],
                "summary": "List log artifacts",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of artifacts (default 50, max 500)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Filter by absolute source path", "name": "source", "in": "query"},
                    {"type": "string", "description": "Filter by run", "name": "run_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ArtifactListResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/artifacts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["artifacts"],
                "summary": "Get a log artifact",
                "parameters": [
                    {"type": "string", "description": "Artifact ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ArtifactResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/files": {
            "delete": {
                "tags": ["files"],
                "summary": "Delete a file",
                "parameters": [
                    {"type": "string", "description": "file path", "name": "path", "in": "query", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/dirs": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Create a directory",
                "parameters": [
                    {"description": "directory to create", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateDirRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.PathResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            },
            "delete": {
                "tags": ["files"],
                "summary": "Remove a directory recursively",
                "parameters": [
                    {"type": "string", "description": "directory path", "name": "path", "in": "query", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/images": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Save an image",
                "parameters": [
                    {"description": "image payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SaveImageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.PathResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/json": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Save a JSON document",
                "parameters": [
                    {"description": "json payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SaveJSONRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.PathResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/raw": {
            "get": {
                "tags": ["files"],
                "summary": "Serve a file",
                "parameters": [
                    {"type": "string", "description": "root-relative or absolute path", "name": "path", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/shared.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/tree": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Get the workspace tree",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/workspace.Node"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/files/tree/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Regenerate the tree file",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/workspace.Node"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/shared.APIError"}}
                }
            }
        },
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List recent runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of runs (default 20, max 200)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RunListResponse"}}
                }
            }
        },
        "/runs/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Per-day run counters",
                "parameters": [
                    {"type": "integer", "description": "Number of days, today first (default 7, max 30)", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RunStatsListResponse"}}
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get a run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RunResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/transcriptions": {
            "post": {
                "description": "Buffered variant of the stream endpoint: waits for the complete answer",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transcriptions"],
                "summary": "Transcribe a menu screenshot",
                "parameters": [
                    {"description": "Capture request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CaptureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TranscriptionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/transcriptions/stream": {
            "post": {
                "description": "Preprocesses the image at target_path, sends it to the completion service and relays the\nanswer fragments as they arrive. The body is the raw concatenation of the fragments and ends\nwhen the connection closes. Errors detected before the first fragment are returned as JSON.",
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["transcriptions"],
                "summary": "Transcribe a menu screenshot as a live stream",
                "parameters": [
                    {"description": "Capture request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CaptureRequest"}}
                ],
                "responses": {
                    "200": {"description": "Streamed JSON text", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/transcriptions/ws": {
            "get": {
                "description": "The first client message is a CaptureRequest JSON object. Each fragment is sent as one text\nmessage and the server closes normally at the end. Failures close with code 4000+HTTP status\nand the error code as reason, or 1011 once fragments were sent.",
                "tags": ["transcriptions"],
                "summary": "Transcribe over a websocket",
                "responses": {}
            }
        }
    },
    "definitions": {
        "dto.ArtifactListResponse": {
            "type": "object",
            "properties": {
                "artifacts": {"type": "array", "items": {"$ref": "#/definitions/dto.ArtifactResponse"}},
                "total": {"type": "integer"}
            }
        },
        "dto.ArtifactResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "height": {"type": "integer"},
                "id": {"type": "string", "example": "art_51be..."},
                "mime_type": {"type": "string", "example": "image/jpeg"},
                "path": {"type": "string"},
                "run_id": {"type": "string"},
                "sha256": {"type": "string"},
                "size": {"type": "integer"},
                "source_path": {"type": "string"},
                "width": {"type": "integer"}
            }
        },
        "dto.CaptureRequest": {
            "type": "object",
            "properties": {
                "target_path": {"type": "string", "example": "captures/menu.png"},
                "user_message": {"type": "string", "example": "This is the white balance menu"}
            }
        },
        "dto.CreateDirRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string", "example": "captures/2024-05-01"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "invalid_path"},
                "details": {"type": "object"},
                "message": {"type": "string", "example": "path escapes the permitted root"}
            }
        },
        "dto.PathResponse": {
            "type": "object",
            "properties": {
                "path": {"type": "string", "example": "captures/menu.png"}
            }
        },
        "dto.RunListResponse": {
            "type": "object",
            "properties": {
                "runs": {"type": "array", "items": {"$ref": "#/definitions/dto.RunResponse"}},
                "total": {"type": "integer"}
            }
        },
        "dto.RunResponse": {
            "type": "object",
            "properties": {
                "artifact_path": {"type": "string"},
                "bytes": {"type": "integer"},
                "duration_ms": {"type": "integer"},
                "ended_at": {"type": "string"},
                "error": {"type": "string"},
                "first_fragment_ms": {"type": "integer"},
                "fragments": {"type": "integer"},
                "id": {"type": "string", "example": "run_9b1c..."},
                "mode": {"type": "string", "example": "stream"},
                "started_at": {"type": "string"},
                "status": {"type": "string", "example": "completed"},
                "target_path": {"type": "string", "example": "captures/menu.png"}
            }
        },
        "dto.RunStatsListResponse": {
            "type": "object",
            "properties": {
                "days": {"type": "integer"},
                "stats": {"type": "array", "items": {"$ref": "#/definitions/dto.RunStatsResponse"}}
            }
        },
        "dto.RunStatsResponse": {
            "type": "object",
            "properties": {
                "avg_duration_ms": {"type": "integer"},
                "bytes": {"type": "integer"},
                "cancelled": {"type": "integer"},
                "completed": {"type": "integer"},
                "date": {"type": "string", "example": "2024-05-01"},
                "failed": {"type": "integer"},
                "fragments": {"type": "integer"},
                "started": {"type": "integer"}
            }
        },
        "dto.SaveImageRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "string", "example": "data:image/png;base64,iVBORw0KGgo..."},
                "path": {"type": "string", "example": "captures/menu.png"}
            }
        },
        "dto.SaveJSONRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "object"},
                "path": {"type": "string", "example": "captures/menu.json"}
            }
        },
        "dto.TranscriptionResponse": {
            "type": "object",
            "properties": {
                "artifact_path": {"type": "string"},
                "run_id": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "shared.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {},
                "message": {"type": "string"}
            }
        },
        "workspace.Node": {
            "type": "object",
            "properties": {
                "children": {"type": "array", "items": {"$ref": "#/definitions/workspace.Node"}},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "size": {"type": "integer"},
                "type": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Menu Capture API",
	Description:      "Transcribes camera menu screenshots into structured JSON and manages the menu workspace",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
