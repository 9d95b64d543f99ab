package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Roadside Assist API",
        "description": "Emergency dispatch, engine sound diagnosis and platform analytics.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Emergencies",
            "description": "Roadside emergency lifecycle"
        },
        {
            "name": "Dispatch",
            "description": "Radius searches for dispatchers"
        },
        {
            "name": "Diagnoses",
            "description": "Engine sound analysis"
        },
        {
            "name": "Analytics",
            "description": "Platform rollups and exports"
        },
        {
            "name": "Users",
            "description": "Caller profile"
        }
    ],
    "paths": {
        "/emergencies": {
            "get": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "List emergency requests",
                "parameters": [
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "type",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "priority",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "Raise an emergency request",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateEmergencyRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/emergencies/nearby": {
            "get": {
                "tags": [
                    "Dispatch"
                ],
                "summary": "Emergencies around a point, most urgent first",
                "parameters": [
                    {
                        "name": "latitude",
                        "in": "query",
                        "type": "number",
                        "required": true
                    },
                    {
                        "name": "longitude",
                        "in": "query",
                        "type": "number",
                        "required": true
                    },
                    {
                        "name": "radius",
                        "in": "query",
                        "type": "number"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "array",
                        "items": {
                            "type": "string"
                        },
                        "collectionFormat": "csv"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/emergencies/{id}": {
            "get": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "Get an emergency request",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/emergencies/{id}/status": {
            "patch": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "Advance an emergency through dispatch",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateEmergencyStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/emergencies/{id}/cancel": {
            "post": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "Cancel an emergency request",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CancelEmergencyRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/emergencies/{id}/cost": {
            "put": {
                "tags": [
                    "Emergencies"
                ],
                "summary": "Record parts and labor cost",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RecordCostRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/garages/nearby": {
            "get": {
                "tags": [
                    "Dispatch"
                ],
                "summary": "Active garages around a point, nearest first",
                "parameters": [
                    {
                        "name": "latitude",
                        "in": "query",
                        "type": "number",
                        "required": true
                    },
                    {
                        "name": "longitude",
                        "in": "query",
                        "type": "number",
                        "required": true
                    },
                    {
                        "name": "radius",
                        "in": "query",
                        "type": "number"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/garages/{id}/stats": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Booking statistics for one garage",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses": {
            "get": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "List diagnoses",
                "parameters": [
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "severity",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/upload": {
            "post": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Submit an engine recording for analysis",
                "consumes": [
                    "multipart/form-data"
                ],
                "parameters": [
                    {
                        "name": "audio",
                        "in": "formData",
                        "required": true,
                        "type": "file"
                    },
                    {
                        "name": "make",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "model",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "year",
                        "in": "formData",
                        "type": "integer"
                    },
                    {
                        "name": "mileage",
                        "in": "formData",
                        "type": "integer"
                    },
                    {
                        "name": "fuel_type",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "symptoms",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "driving_conditions",
                        "in": "formData",
                        "type": "string"
                    },
                    {
                        "name": "when_occurs",
                        "in": "formData",
                        "type": "string"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/stats": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Diagnosis statistics for a date range",
                "parameters": [
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/{id}": {
            "get": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Get a diagnosis",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Delete a diagnosis and its recording",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/{id}/result": {
            "get": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Fetch the analysis result",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Completed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "202": {
                        "description": "Analysis in progress",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "500": {
                        "description": "Analysis failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/{id}/feedback": {
            "put": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Rate a completed diagnosis",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/DiagnosisFeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/diagnoses/audio/{token}": {
            "get": {
                "tags": [
                    "Diagnoses"
                ],
                "summary": "Download a recording through a signed link",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Recording",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Platform dashboard for a date range",
                "parameters": [
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "top",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/analytics/dashboard/export": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Export the dashboard as CSV or PDF",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "top",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Document",
                        "schema": {
                            "type": "file"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/analytics/system": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Process level instrumentation snapshot",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/analytics/cache": {
            "delete": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Drop cached analytics",
                "responses": {
                    "204": {
                        "description": "Invalidated"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me": {
            "get": {
                "tags": [
                    "Users"
                ],
                "summary": "Role specific profile of the caller",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "Location": {
            "type": "object",
            "properties": {
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                },
                "address": {
                    "type": "string"
                }
            },
            "required": [
                "latitude",
                "longitude",
                "address"
            ]
        },
        "VehicleInfo": {
            "type": "object",
            "properties": {
                "make": {
                    "type": "string"
                },
                "model": {
                    "type": "string"
                },
                "year": {
                    "type": "integer"
                },
                "license_plate": {
                    "type": "string"
                },
                "color": {
                    "type": "string"
                }
            }
        },
        "CreateEmergencyRequest": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string",
                    "enum": [
                        "breakdown",
                        "accident",
                        "flat_tire",
                        "battery",
                        "fuel",
                        "lockout",
                        "other"
                    ]
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "$ref": "#/definitions/Location"
                },
                "vehicle_info": {
                    "$ref": "#/definitions/VehicleInfo"
                },
                "contact_number": {
                    "type": "string"
                },
                "alternate_contact": {
                    "type": "string"
                },
                "passenger_count": {
                    "type": "integer"
                },
                "has_injuries": {
                    "type": "boolean"
                },
                "weather_conditions": {
                    "type": "string"
                },
                "road_conditions": {
                    "type": "string"
                }
            },
            "required": [
                "type",
                "description",
                "location",
                "contact_number"
            ]
        },
        "UpdateEmergencyStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "dispatched",
                        "in_progress",
                        "completed"
                    ]
                },
                "dispatch_notes": {
                    "type": "string"
                },
                "estimated_arrival": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "status"
            ]
        },
        "CancelEmergencyRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            },
            "required": [
                "reason"
            ]
        },
        "Part": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "quantity": {
                    "type": "integer"
                },
                "cost": {
                    "type": "string"
                }
            }
        },
        "RecordCostRequest": {
            "type": "object",
            "properties": {
                "parts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Part"
                    }
                },
                "labor_cost": {
                    "type": "string"
                }
            }
        },
        "DiagnosisFeedbackRequest": {
            "type": "object",
            "properties": {
                "was_accurate": {
                    "type": "boolean"
                },
                "rating": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 5
                },
                "comments": {
                    "type": "string"
                }
            },
            "required": [
                "was_accurate",
                "rating"
            ]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "detail": {
                    "type": "string"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "data": {
                    "type": "object"
                },
                "message": {
                    "type": "string"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
