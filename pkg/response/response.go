package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
)

// ErrorBody is the error contract. Clients display Detail; Code is stable for
// programmatic checks.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// MessageBody confirms a write that returns no resource.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON sends body as-is with caching disabled.
func JSON(c *gin.Context, status int, body interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, body)
}

// OK responds with HTTP 200 and the given payload.
func OK(c *gin.Context, body interface{}) {
	JSON(c, http.StatusOK, body)
}

// Message responds with HTTP 200 and a bare confirmation message.
func Message(c *gin.Context, message string) {
	JSON(c, http.StatusOK, MessageBody{Message: message})
}

// Error maps err onto its domain status. Unknown errors become 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	JSON(c, appErr.Status, ErrorBody{Detail: appErr.Message, Code: appErr.Code})
}
