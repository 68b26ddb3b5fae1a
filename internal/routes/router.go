package routes

import (
	"net/http"
	"strings"

	"shoplist/internal/apperr"
	"shoplist/internal/controller"
	"shoplist/internal/metrics"
	"shoplist/internal/middleware"
	"shoplist/internal/session"
	"shoplist/internal/throttle"

	"github.com/gin-gonic/gin"
)

// Deps is everything the router wires into handlers and gates.
type Deps struct {
	Items    *controller.Items
	Auth     *controller.Auth
	Health   *controller.Health
	Sessions *session.Manager
	Throttle *throttle.Throttle
	Metrics  *metrics.Metrics

	ForceHTTPS     bool
	TrustedProxies []string
}

func Router(d Deps) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(controller.Templates())
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.RequestMetrics(d.Metrics),
		middleware.SecurityHeaders(),
		middleware.ForceHTTPS(d.ForceHTTPS, "/health", "/ready", "/metrics"),
	)

	// Health for load balancers and K8s probes
	router.GET("/health", d.Health.Live)
	router.GET("/ready", d.Health.Ready)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// Pages
	router.GET("/login", d.Auth.LoginPage)
	router.POST("/login", middleware.Gate(d.Auth.DenyLogin, middleware.ThrottleCheck(d.Throttle)), d.Auth.Login)
	router.GET("/logout", d.Auth.Logout)
	router.GET("/", middleware.Gate(middleware.DenyRedirect("/login"), middleware.SessionCheck(d.Sessions)), d.Auth.Index)

	// API: session required
	api := router.Group("/api")
	api.Use(middleware.Gate(middleware.DenyJSON, middleware.SessionCheck(d.Sessions)))
	{
		api.GET("/items", d.Items.List)
		api.POST("/items", d.Items.Create)
		api.DELETE("/items/clear-completed", d.Items.ClearCompleted)
		api.PUT("/items/:id", d.Items.Update)
		api.PUT("/items/:id/toggle", d.Items.Toggle)
		api.DELETE("/items/:id", d.Items.Delete)
	}

	router.NoRoute(notFound)
	return router, nil
}

func notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		middleware.DenyJSON(c, &apperr.NotFoundError{Resource: "route"})
		return
	}
	c.String(http.StatusNotFound, "404 page not found")
}
