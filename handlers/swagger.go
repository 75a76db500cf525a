package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the content service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gogotex-content Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the content routes. Write routes need a bearer
// token carrying the content-admin role.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gogotex-content", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Document": { "type": "object", "properties": { "version": {"type":"integer"}, "active": {"type":"boolean"}, "timestamp": {"type":"string","format":"date-time"}, "global": {"type":"object"}, "pages": {"type":"array","items":{"$ref":"#/components/schemas/Page"}} } },
      "Page": { "type": "object", "required": ["slug"], "properties": { "id": {"type":"string"}, "slug": {"type":"string"}, "title": {"type":"string"}, "meta": {"type":"object","properties":{"title":{"type":"string"},"description":{"type":"string"}}}, "sections": {"type":"array","items":{"type":"object","properties":{"id":{"type":"string"},"type":{"type":"string"}}}} } },
      "UpdateResult": { "type": "object", "properties": { "success": {"type":"boolean"}, "message": {"type":"string"}, "mode": {"type":"string","enum":["complete","incremental"]}, "result": {"type":"object"}, "revalidatedPaths": {"type":"array","items":{"type":"string"}}, "refreshed": {"type":"boolean"} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "status": {"type":"integer"} } }
    }
  },
  "paths": {
    "/api/content": {
      "get": { "summary": "Current content document", "responses": { "200": { "description": "document" }, "404": { "description": "no content yet" } } },
      "put": { "summary": "Replace the whole document", "security": [{"bearer":[]}], "responses": { "200": { "description": "saved" }, "400": { "description": "invalid content" } } }
    },
    "/api/content/global": {
      "get": { "summary": "Global content", "responses": { "200": { "description": "global object" }, "404": { "description": "not found" } } },
      "put": { "summary": "Replace global content", "security": [{"bearer":[]}], "responses": { "200": { "description": "saved" } } }
    },
    "/api/content/pages": { "get": { "summary": "All pages", "responses": { "200": { "description": "page list, empty when no content exists" } } } },
    "/api/content/page": {
      "get": { "summary": "Page by slug", "parameters": [{"name":"slug","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "page" }, "404": { "description": "page not found" } } },
      "put": { "summary": "Upsert page by slug", "security": [{"bearer":[]}], "parameters": [{"name":"slug","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "saved page" } } }
    },
    "/api/content/query": { "get": { "summary": "JSONPath query over the current document", "parameters": [{"name":"path","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "matches" }, "400": { "description": "invalid expression" } } } },
    "/api/content/update": {
      "post": { "summary": "Run the update pipeline", "security": [{"bearer":[]}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"global":{"type":"object"},"pages":{"type":"array"}}}}}},
        "responses": { "200": { "description": "saved, possibly partially", "content": {"application/json":{"schema":{"$ref":"#/components/schemas/UpdateResult"}}} }, "400": { "description": "neither global nor pages supplied" }, "422": { "description": "payload cannot be serialized" }, "500": { "description": "nothing was saved" } } }
    },
    "/api/content/versions": { "get": { "summary": "Version history", "responses": { "200": { "description": "versions, newest first" }, "501": { "description": "backend keeps no history" } } } },
    "/api/content/versions/{version}": { "get": { "summary": "One version", "parameters": [{"name":"version","in":"path","required":true,"schema":{"type":"integer"}}], "responses": { "200": { "description": "document" }, "404": { "description": "unknown version" } } } },
    "/api/content/versions/{version}/activate": { "post": { "summary": "Make a version active", "security": [{"bearer":[]}], "parameters": [{"name":"version","in":"path","required":true,"schema":{"type":"integer"}}], "responses": { "200": { "description": "activated" }, "404": { "description": "unknown version" } } } },
    "/api/content/versions/{version}/snapshot": { "get": { "summary": "Redirect to the archived copy of a version", "parameters": [{"name":"version","in":"path","required":true,"schema":{"type":"integer"}}], "responses": { "302": { "description": "presigned MinIO link" }, "404": { "description": "unknown version" }, "501": { "description": "no archive configured" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
