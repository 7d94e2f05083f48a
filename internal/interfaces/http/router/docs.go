package router

import (
	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SwaggerPath is where the API documentation UI and doc.json are served
const SwaggerPath = "/swagger/*any"

// RegisterDocs mounts the Swagger UI behind SwaggerProtection. The route is
// always registered so a disabled UI answers 404 through the middleware.
// The spec itself comes from the docs package, which the caller must import.
func RegisterDocs(engine *gin.Engine, cfg middleware.SwaggerConfig) {
	engine.GET(SwaggerPath, middleware.SwaggerProtection(cfg), ginSwagger.WrapHandler(swaggerFiles.Handler))
}
