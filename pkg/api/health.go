package api

import (
	"context"
	"net/http"

	"github.com/txn2/analytics-gateway/pkg/query"
)

// engineService names the analytics engine in health responses.
const engineService = "Trino"

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// health handles GET /health by running a trivial statement end to end.
func (h *Handler) health(ctx context.Context, c *call) response {
	err := query.WithSession(ctx, h.factory, func(s query.Session) error {
		_, err := s.Execute(ctx, query.Raw("SELECT 1"))
		return err
	})
	if err != nil {
		resp := h.internalError(ctx, c, err, "engine health check", http.StatusServiceUnavailable, "Connection failed")
		resp.body = healthResponse{Status: "unhealthy", Service: engineService, Error: "Connection failed"}
		return resp
	}
	return ok(healthResponse{Status: "healthy", Service: engineService, Message: "Connection Successful"})
}
