package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// MaxSlugLength - верхняя граница длины slug в URL
const MaxSlugLength = 32

// ExtractUintParam создает middleware для извлечения и валидации числового параметра URL.
// paramName - имя параметра в URL (например, "id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			return
		}
		c.Set(contextKey, uint(id))
		c.Next()
	}
}

// ExtractSlugParam проверяет slug в URL и сохраняет его в контексте.
// Slug длиннее MaxSlugLength не может существовать, поэтому сразу 404.
func ExtractSlugParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param(paramName)
		if slug == "" || len(slug) > MaxSlugLength {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Question set not found"})
			return
		}
		c.Set(contextKey, slug)
		c.Next()
	}
}
