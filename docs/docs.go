// Package docs holds the Swagger document served at /swagger.
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
        "/healthz": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "System"
                ],
                "summary": "Health check",
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                }
            }
        },
        "/admin/process-pending-subscriptions": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Process Pending Subscriptions (Admin)",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.ProcessPendingRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespProcessPending"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/admin/create-pending-subscription": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Create Pending Subscription (Admin)",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/partner.CreatePendingSubscriptionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/admin/register": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Register Partner (Admin)",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/partner.RegisterRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/admin/activity-logs": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "List Activity Logs (Admin)",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/activitylog.ScanRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/admin/statistics": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Get Statistics (Admin)",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/statistics.StatisticRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/admin/sweeps/{job}": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Admin"
                ],
                "summary": "Run Sweep (Admin)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "expired_premium_sweep or pending_activation_sweep",
                        "name": "job",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "security": [
                    {
                        "AdminBearer": []
                    }
                ]
            }
        },
        "/referrals/process": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Referral"
                ],
                "summary": "Process Referral",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.ReferralRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespReferral"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/referrals/check-eligibility": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Referral"
                ],
                "summary": "Check Referral Eligibility",
                "parameters": [
                    {
                        "description": "request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.CheckEligibilityRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespEligibility"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/subscriptions/check": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Subscription"
                ],
                "summary": "Check Subscriptions",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Customer email",
                        "name": "email",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                }
            }
        },
        "/partners": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Partner"
                ],
                "summary": "List Partners",
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                }
            }
        },
        "/partners/{slug}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Partner"
                ],
                "summary": "Get Partner",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Partner slug",
                        "name": "slug",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                }
            }
        },
        "/partners/{slug}/process-csv": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Partner"
                ],
                "summary": "Import Subscriptions CSV (Partner)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Partner slug",
                        "name": "slug",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "file",
                        "description": "CSV file",
                        "name": "csvFile",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.RespOK"
                        }
                    }
                },
                "security": [
                    {
                        "PartnerAPIKey": []
                    }
                ],
                "consumes": [
                    "multipart/form-data"
                ]
            }
        }
    },
    "definitions": {
        "handlers.RespOK": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "type": "object"
                }
            }
        },
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "daysSinceRegistration": {
                    "type": "integer"
                }
            }
        },
        "handlers.CheckEligibilityRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                }
            }
        },
        "lifecycle.PendingSubscriptionDecision": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "action": {
                    "type": "string",
                    "enum": [
                        "approve",
                        "decline"
                    ]
                },
                "duration": {
                    "type": "integer"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "lifecycle.ProcessPendingRequest": {
            "type": "object",
            "properties": {
                "subscriptions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.PendingSubscriptionDecision"
                    }
                }
            }
        },
        "lifecycle.RecordError": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "reason": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                }
            }
        },
        "lifecycle.ProcessPendingResult": {
            "type": "object",
            "properties": {
                "processed": {
                    "type": "integer"
                },
                "approved": {
                    "type": "integer"
                },
                "declined": {
                    "type": "integer"
                },
                "userUpdated": {
                    "type": "integer"
                },
                "pendingActivation": {
                    "type": "integer"
                },
                "errors": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.RecordError"
                    }
                },
                "subscriptions": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                }
            }
        },
        "handlers.RespProcessPending": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/lifecycle.ProcessPendingResult"
                }
            }
        },
        "lifecycle.ReferralRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "referralCode": {
                    "type": "string"
                },
                "duration": {
                    "type": "integer"
                }
            }
        },
        "lifecycle.ReferralResult": {
            "type": "object",
            "properties": {
                "userId": {
                    "type": "string"
                },
                "influencerId": {
                    "type": "string"
                },
                "premiumDuration": {
                    "type": "integer"
                },
                "expiryDate": {
                    "type": "string"
                },
                "daysSinceRegistration": {
                    "type": "integer"
                }
            }
        },
        "handlers.RespReferral": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/lifecycle.ReferralResult"
                }
            }
        },
        "lifecycle.EligibilityResult": {
            "type": "object",
            "properties": {
                "eligible": {
                    "type": "boolean"
                },
                "reason": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "daysSinceRegistration": {
                    "type": "integer"
                }
            }
        },
        "handlers.RespEligibility": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "message": {
                    "type": "string"
                },
                "data": {
                    "$ref": "#/definitions/lifecycle.EligibilityResult"
                }
            }
        },
        "partner.CreatePendingSubscriptionRequest": {
            "type": "object",
            "properties": {
                "email": {
                    "type": "string"
                },
                "partnerId": {
                    "type": "string"
                },
                "duration": {
                    "type": "integer"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "partner.RegisterRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "slug": {
                    "type": "string"
                },
                "contactEmail": {
                    "type": "string"
                },
                "contactName": {
                    "type": "string"
                },
                "contactPhone": {
                    "type": "string"
                },
                "website": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "logoUrl": {
                    "type": "string"
                },
                "defaultSubscriptionDuration": {
                    "type": "integer"
                }
            }
        },
        "activitylog.ScanRequest": {
            "type": "object",
            "properties": {
                "filters": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "from": {
                    "type": "integer"
                },
                "size": {
                    "type": "integer"
                },
                "sortBy": {
                    "type": "string"
                },
                "sortOrder": {
                    "type": "string"
                }
            }
        },
        "statistics.StatisticRequest": {
            "type": "object",
            "properties": {
                "filters": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "dataItems": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "AdminBearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "PartnerAPIKey": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8888",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Premium Lifecycle API",
	Description:      "Partner subscriptions, referral grants and premium reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
