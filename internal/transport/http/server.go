// Package http provides the HTTP server for the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/mcpchat/internal/service"
)

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := NewHandler(svc)
	handler.RegisterRoutes(e)

	return e
}
