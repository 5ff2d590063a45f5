package response

import "github.com/gin-gonic/gin"

// Body is the envelope shared by every JSON endpoint.
type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, Body{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Body{
		Success: false,
		Message: message,
	})
}

// ErrorDetail adds a diagnostic string; only admin endpoints use it.
func ErrorDetail(c *gin.Context, httpStatus int, message, detail string, data interface{}) {
	c.JSON(httpStatus, Body{
		Success: false,
		Message: message,
		Error:   detail,
		Data:    data,
	})
}

func Abort(c *gin.Context, httpStatus int, message string) {
	Error(c, httpStatus, message)
	c.Abort()
}
