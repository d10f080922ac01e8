// Package utils holds the JSON response envelope shared by every handler.
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// Created is Success with a 201, for freshly created records.
func Created(c *gin.Context, data gin.H) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

// NotFound reports a missing record. Ownership mismatches use it too, so
// callers cannot distinguish foreign records from absent ones.
func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, msg)
}
