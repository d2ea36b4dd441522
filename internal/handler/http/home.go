package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/luanatech/storefront/internal/storefront"
	"github.com/luanatech/storefront/pkg/httputil"
)

// HomeComposer builds the storefront home page.
type HomeComposer interface {
	Home(ctx context.Context) *storefront.HomePage
}

// HomeHandler handles HTTP requests for the home page.
type HomeHandler struct {
	home   HomeComposer
	logger *slog.Logger
}

// NewHomeHandler creates a new home page HTTP handler.
func NewHomeHandler(home HomeComposer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{home: home, logger: logger}
}

// GetHome handles GET /api/v1/home
func (h *HomeHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	page := h.home.Home(r.Context())
	httputil.WriteData(w, page, page.IsDegraded())
}
