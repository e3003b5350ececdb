package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/grid-subset/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(extractUC *usecase.ExtractionUseCase) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	handler := NewHandler(extractUC)

	v1 := router.Group("/v1")
	v1.GET("/regions", handler.GetRegions)
	v1.GET("/datasets", handler.GetDatasets)
	v1.GET("/datasets/:name/subset", handler.GetSubset)

	router.GET("/health", handler.HealthCheck)

	return router
}
