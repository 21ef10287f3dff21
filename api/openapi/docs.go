// Package openapi 注册 Swagger 文档，供 gin-swagger 在 /swagger/*any 提供
package openapi

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
        "/videos": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "视频列表",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/videos/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "上传视频",
                "parameters": [
                    {"type": "file", "description": "视频文件", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "标题", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "描述", "name": "description", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "上传成功", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "请求参数无效", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "413": {"description": "文件过大", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/videos/user": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "我的视频",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/videos/pending": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "未就绪视频",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "需要管理员权限", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/videos/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "搜索视频",
                "parameters": [
                    {"type": "string", "description": "搜索关键词", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "default": 20, "description": "返回数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "搜索成功", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "请求参数无效", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/videos/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "更新视频",
                "parameters": [
                    {"type": "string", "description": "视频ID", "name": "id", "in": "path", "required": true},
                    {"description": "更新内容", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.VideoUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "标题不能为空", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "没有权限", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "删除视频",
                "parameters": [
                    {"type": "string", "description": "视频ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "没有权限", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "视频不存在", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "视频正在转码", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/videos/{id}/play": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "播放信息",
                "parameters": [
                    {"type": "string", "description": "视频ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "视频尚未就绪", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "视频不存在", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/videos/{id}/failed": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["视频"],
                "summary": "清理失败视频",
                "parameters": [
                    {"type": "string", "description": "视频ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "只能清理处理失败的视频", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "没有权限", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.VideoUpdateRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "response.ErrorInfo": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "type": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/response.ErrorInfo"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "输入格式: Bearer {token}",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Vida VOD API",
	Description:      "视频上传、转码与点播 API 服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
