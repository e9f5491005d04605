package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/txn2/analytics-gateway/pkg/query"
	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// listPermissions handles GET /permissions?limit=N.
func (h *Handler) listPermissions(ctx context.Context, c *call) response {
	raw := c.r.URL.Query().Get("limit")
	if raw != "" {
		c.params["limit"] = raw
	}

	limit, err := ParseLimit(raw)
	if err != nil {
		return fail(http.StatusBadRequest, "Invalid limit: must be a positive integer")
	}

	stmt, err := h.builder.Select(h.tables.Permissions.Name, nil, sqlsafe.WithLimit(limit))
	if err != nil {
		return h.internalError(ctx, c, err, "build permissions list", http.StatusInternalServerError, "Unable to fetch permissions data")
	}

	var rows []query.Row
	err = query.WithSession(ctx, h.factory, func(s query.Session) error {
		rows, err = s.Execute(ctx, stmt)
		return err
	})
	if err != nil {
		return h.internalError(ctx, c, err, "list permissions", http.StatusInternalServerError, "Unable to fetch permissions data")
	}

	count := len(rows)
	return ok(Envelope{Success: true, Count: &count, Data: rows})
}

// getPermission handles GET /permissions/{id}.
func (h *Handler) getPermission(ctx context.Context, c *call) response {
	raw := chi.URLParam(c.r, "id")
	c.params["id"] = raw

	id, err := sqlsafe.Validate(raw, sqlsafe.RecordID)
	if err != nil {
		h.logger.Warn("invalid permission id", "error", err, "user_id", userID(c.caller))
		return fail(http.StatusBadRequest, "Invalid permission ID format")
	}

	stmt, err := h.builder.Select(h.tables.Permissions.Name,
		sqlsafe.FilterSpec{h.tables.Permissions.IDColumn: id},
		sqlsafe.WithLimit(1))
	if err != nil {
		return h.internalError(ctx, c, err, "build permission lookup", http.StatusInternalServerError, "Unable to fetch permission data")
	}

	var rows []query.Row
	err = query.WithSession(ctx, h.factory, func(s query.Session) error {
		rows, err = s.Execute(ctx, stmt)
		return err
	})
	if err != nil {
		return h.internalError(ctx, c, err, "get permission", http.StatusInternalServerError, "Unable to fetch permission data")
	}
	if len(rows) == 0 {
		return fail(http.StatusNotFound, fmt.Sprintf("Permission %s not found", id))
	}

	return ok(Envelope{Success: true, Data: rows[0]})
}
