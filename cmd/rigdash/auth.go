package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// authMiddleware requires HTTP basic auth whose password matches the
// bcrypt hash. Any user name is accepted.
func authMiddleware(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="rigdash"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No credentials provided"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			c.Header("WWW-Authenticate", `Basic realm="rigdash"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.Next()
	}
}
