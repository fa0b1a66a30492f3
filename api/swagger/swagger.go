package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Plantel Incidents API",
        "description": "Incident lifecycle and planning review service for school campuses",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Incidents", "description": "Incident wizard and lifecycle"},
        {"name": "Planning", "description": "Planning submission review"}
    ],
    "paths": {
        "/incidents/analyze": {
            "post": {
                "tags": ["Incidents"],
                "summary": "Classify an incident narrative",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeIncidentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Classifier unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents": {
            "get": {
                "tags": ["Incidents"],
                "summary": "List incidents",
                "parameters": [
                    {"name": "plantelId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Incidents"],
                "summary": "Save a reviewed incident",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateIncidentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}": {
            "get": {
                "tags": ["Incidents"],
                "summary": "Get incident detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/acta": {
            "put": {
                "tags": ["Incidents"],
                "summary": "Edit the acta de hechos draft",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateActaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Incident closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/protocol/{actionId}": {
            "put": {
                "tags": ["Incidents"],
                "summary": "Toggle a protocol checklist action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "actionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ToggleActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/print": {
            "post": {
                "tags": ["Incidents"],
                "summary": "Print the official acta PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"}
                }
            }
        },
        "/incidents/{id}/signed-acta": {
            "get": {
                "tags": ["Incidents"],
                "summary": "Download the stored signed acta",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"},
                    "401": {"description": "Missing credentials or token"}
                }
            },
            "post": {
                "tags": ["Incidents"],
                "summary": "Attach the externally signed acta",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Incident not open", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/signed-acta/url": {
            "get": {
                "tags": ["Incidents"],
                "summary": "Issue a tokenized download URL",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/close": {
            "post": {
                "tags": ["Incidents"],
                "summary": "Close a signed incident",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Incident not signed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{planId}/submissions": {
            "post": {
                "tags": ["Planning"],
                "summary": "Submit a plan for review",
                "parameters": [
                    {"name": "planId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending submission exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{planId}/resubmit": {
            "post": {
                "tags": ["Planning"],
                "summary": "Resubmit a plan after changes were requested",
                "parameters": [
                    {"name": "planId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions": {
            "get": {
                "tags": ["Planning"],
                "summary": "List planning submissions",
                "parameters": [
                    {"name": "planId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Planning"],
                "summary": "Get submission detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/review": {
            "post": {
                "tags": ["Planning"],
                "summary": "Review a planning submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing comments", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Incident": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "plantelId": {"type": "string"},
                "createdBy": {"type": "string"},
                "studentId": {"type": "string"},
                "narrative": {"type": "string"},
                "type": {"type": "string", "enum": ["posesion_arma", "consumo_sustancias", "bullying", "violencia_fisica", "accidente_escolar", "perturbacion_externa", "otro"]},
                "riskLevel": {"type": "string", "enum": ["bajo", "medio", "alto", "inminente"]},
                "actaContent": {"type": "string"},
                "protocol": {"$ref": "#/definitions/ProtocolCheck"},
                "status": {"type": "string", "enum": ["generada", "abierta", "firmada", "cerrada"]},
                "signedActaUrl": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "ProtocolCheck": {
            "type": "object",
            "properties": {
                "acciones": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ProtocolAction"}
                },
                "completadas": {"type": "object"}
            }
        },
        "ProtocolAction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "descripcion": {"type": "string"}
            }
        },
        "AnalyzeIncidentRequest": {
            "type": "object",
            "properties": {
                "plantelId": {"type": "string"},
                "studentId": {"type": "string"},
                "narrative": {"type": "string"},
                "preselectedType": {"type": "string"}
            },
            "required": ["plantelId"]
        },
        "CreateIncidentRequest": {
            "type": "object",
            "properties": {
                "plantelId": {"type": "string"},
                "studentId": {"type": "string"},
                "narrative": {"type": "string"},
                "riskLevel": {"type": "string"},
                "suggestedType": {"type": "string"},
                "preselectedType": {"type": "string"},
                "actaContent": {"type": "string"},
                "urgentActions": {"type": "array", "items": {"type": "string"}},
                "completed": {"type": "object"},
                "acknowledgeEscalation": {"type": "boolean"}
            },
            "required": ["plantelId", "studentId", "narrative", "riskLevel"]
        },
        "UpdateActaRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"}
            },
            "required": ["content"]
        },
        "ToggleActionRequest": {
            "type": "object",
            "properties": {
                "done": {"type": "boolean"}
            }
        },
        "PlanningSubmission": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "planId": {"type": "string"},
                "teacherId": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "approved", "changes_requested"]},
                "reviewerId": {"type": "string"},
                "comments": {"type": "string"},
                "submittedAt": {"type": "string"},
                "reviewedAt": {"type": "string"}
            }
        },
        "ReviewSubmissionRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["approve", "request_changes"]},
                "comments": {"type": "string"}
            },
            "required": ["decision"]
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
