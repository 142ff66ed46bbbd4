package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/paytab/backend/api/handler"
)

type Handlers struct {
	Session *apiHandler.SessionHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, traffic func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Session routes
	r.POST("/api/v1/sessions/open", traffic(handlers.Session.Open))
	r.POST("/api/v1/sessions/spend", traffic(handlers.Session.Spend))
	r.POST("/api/v1/sessions/settle", traffic(handlers.Session.Settle))
	r.GET("/api/v1/sessions/{id}", traffic(handlers.Session.Get))

	return r
}
