package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseData is the envelope every JSON endpoint answers with. Data is
// set on success and Error on failure.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

const errorMessage = "An error occurred"

func write(c *gin.Context, body ResponseData) {
	c.JSON(body.Status, body)
}

// Success answers 200 with data.
func Success(c *gin.Context, message string, data interface{}) {
	write(c, ResponseData{Status: http.StatusOK, Message: message, Data: data})
}

// Created answers 201 with the new resource.
func Created(c *gin.Context, message string, data interface{}) {
	write(c, ResponseData{Status: http.StatusCreated, Message: message, Data: data})
}

// Error answers statusCode with a message safe to show the client.
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, ResponseData{Status: statusCode, Message: errorMessage, Error: msg})
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, statusCode int, msg string) {
	Error(c, statusCode, msg)
	c.Abort()
}

// BadRequest answers 400.
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// Unauthorized answers 401.
func Unauthorized(c *gin.Context, msg string) {
	Error(c, http.StatusUnauthorized, msg)
}

// InternalServerError answers 500.
func InternalServerError(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, msg)
}
