// Package docs registers the OpenAPI description of the HTTP API with swag,
// in the layout the swag CLI emits. Keep it in step with the handler
// annotations in internal/api (swag init -g cmd/server/main.go).
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
                "summary": "Health check",
                "description": "Answers 200 when the conversation store responds to a ping, 503 otherwise.",
                "tags": [
                    "Health"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}": {
            "put": {
                "summary": "Open a conversation",
                "description": "Opens the session of a conversation, creating the conversation if it does not exist yet.",
                "tags": [
                    "Conversations"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Title, description and vendor metadata",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/service.OpenConversationRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/model.Conversation"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "summary": "Close a conversation",
                "description": "Flushes and closes the session. With purge=true the conversation and its messages are deleted as well.",
                "tags": [
                    "Conversations"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Delete the conversation after closing",
                        "name": "purge",
                        "in": "query",
                        "required": false,
                        "type": "boolean"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations": {
            "post": {
                "summary": "Create a conversation",
                "description": "Starts a conversation under a generated id and opens its session.",
                "tags": [
                    "Conversations"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Title, description and vendor metadata",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/service.OpenConversationRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/model.Conversation"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages": {
            "get": {
                "summary": "List messages",
                "description": "Returns the messages of a conversation in order, reopening the session from the store if needed.",
                "tags": [
                    "Messages"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "summary": "Delete messages",
                "description": "Deletes the listed messages; an empty body clears the conversation.",
                "tags": [
                    "Messages"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Message IDs",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/api.DeleteMessagesRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/user": {
            "post": {
                "summary": "Add a user message",
                "tags": [
                    "Messages"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Message content",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.AddUserMessageRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/bot": {
            "post": {
                "summary": "Add a bot message",
                "description": "Appends an empty bot message; its steps arrive later.",
                "tags": [
                    "Messages"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}": {
            "patch": {
                "summary": "Edit a user message",
                "description": "Edits a user message. Every later message is removed from the conversation.",
                "tags": [
                    "Messages"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Fields to change",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.UpdateUserMessageRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/previous-user": {
            "get": {
                "summary": "Previous user message",
                "description": "Returns the closest user message before the given message.",
                "tags": [
                    "Messages"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/steps": {
            "post": {
                "summary": "Add a bot step",
                "description": "Appends a step document, tagged by its \"type\" field, to a bot message.",
                "tags": [
                    "Steps"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Bot message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Step document",
                        "name": "step",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "type": "object"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID}": {
            "patch": {
                "summary": "Update a bot step",
                "tags": [
                    "Steps"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Bot message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Step ID",
                        "name": "stepID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Partial step update",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.UpdateStepRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID}/complete": {
            "post": {
                "summary": "Complete a message step",
                "description": "Parses the streamed text of a message step, marks it completed and derives its workflow steps.",
                "tags": [
                    "Steps"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Bot message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Step ID",
                        "name": "stepID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID}/actions/{actionID}": {
            "patch": {
                "summary": "Resolve an action",
                "tags": [
                    "Steps"
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Bot message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Step ID",
                        "name": "stepID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Action ID",
                        "name": "actionID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Status and output",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.UpdateActionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/messages/{messageID}/events": {
            "post": {
                "summary": "Stream assistant events",
                "description": "Applies a newline-delimited JSON stream of assistant events to a bot message. The request returns once the run ends.",
                "tags": [
                    "Steps"
                ],
                "consumes": [
                    "application/x-ndjson"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Bot message ID",
                        "name": "messageID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/conversations/{conversationID}/flush": {
            "post": {
                "summary": "Flush a conversation",
                "description": "Writes pending changes to the store now instead of after the debounce delay.",
                "tags": [
                    "Conversations"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Conversation ID",
                        "name": "conversationID",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatusResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                }
            }
        },
        "api.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                }
            }
        },
        "api.AddUserMessageRequest": {
            "type": "object",
            "required": [
                "content"
            ],
            "properties": {
                "content": {
                    "type": "string",
                    "maxLength": 32000
                },
                "contextSelections": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/model.ContextSelection"
                    }
                }
            }
        },
        "api.UpdateUserMessageRequest": {
            "type": "object",
            "properties": {
                "content": {
                    "type": "string",
                    "maxLength": 32000,
                    "minLength": 1
                },
                "contextSelections": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/model.ContextSelection"
                    }
                }
            }
        },
        "api.UpdateStepRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "IN_PROGRESS",
                        "COMPLETED"
                    ]
                },
                "messages": {
                    "type": "array",
                    "items": {
                        "type": "object"
                    }
                },
                "tool": {
                    "type": "object"
                },
                "error": {
                    "type": "object"
                },
                "action": {
                    "type": "object"
                },
                "workflow": {
                    "type": "object"
                },
                "params": {
                    "type": "object"
                }
            }
        },
        "api.UpdateActionRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "IN_PROGRESS",
                        "COMPLETED"
                    ]
                },
                "output": {
                    "type": "object"
                }
            }
        },
        "api.DeleteMessagesRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "service.OpenConversationRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string",
                    "maxLength": 200
                },
                "description": {
                    "type": "string",
                    "maxLength": 2000
                },
                "metadata": {
                    "$ref": "#/definitions/model.ConversationMetadata"
                }
            }
        },
        "model.Conversation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "metadata": {
                    "$ref": "#/definitions/model.ConversationMetadata"
                }
            }
        },
        "model.ConversationMetadata": {
            "type": "object",
            "properties": {
                "vendor": {
                    "type": "string"
                },
                "threadId": {
                    "type": "string"
                },
                "extra": {
                    "type": "object"
                }
            }
        },
        "model.ContextSelection": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string"
                },
                "key": {
                    "type": "string"
                },
                "label": {
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Aria chat-session API",
	Description:      "Conversation sessions with a debounced write-behind store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
