package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/txn2/analytics-gateway/pkg/query"
	"github.com/txn2/analytics-gateway/pkg/sqlsafe"
)

// ProfileResponse is the body of GET /profile/{subject}.
type ProfileResponse struct {
	Success      bool        `json:"success"`
	Subject      string      `json:"oidc_sub"`
	Employee     Employee    `json:"employee"`
	History      []query.Row `json:"adage_history"`
	HistoryCount int         `json:"adage_count"`
}

// Employee is the shaped employee record.
type Employee struct {
	Name                    string          `json:"name"`
	Email                   any             `json:"email"`
	Status                  any             `json:"status"`
	JobTitle                any             `json:"job_title"`
	ContactID               any             `json:"contact_id"`
	MarketingClient         MarketingClient `json:"marketing_client"`
	PrimaryTeam             any             `json:"primary_team"`
	PrimaryPosition         any             `json:"primary_position"`
	PrimaryTeamRegion       any             `json:"primary_team_region"`
	PrimaryTeamBusinessLine any             `json:"primary_team_business_line"`
	Created                 any             `json:"created"`
	LastUpdated             any             `json:"last_updated"`
	FullData                query.Row       `json:"full_data"`
}

// MarketingClient groups the employee's marketing client columns.
type MarketingClient struct {
	ID      any `json:"id"`
	Name    any `json:"name"`
	Country any `json:"country"`
	Status  any `json:"status"`
}

// SelfData is the data of GET /me/trino-data.
type SelfData struct {
	JobTitle any `json:"job_title"`
	TeamName any `json:"team_name"`
	Country  any `json:"country"`
	Metier   any `json:"metier"`
	GBL      any `json:"gbl"`
	Disabled any `json:"disabled"`
	FLCFlag  any `json:"flc_flag"`
}

func shapeEmployee(row query.Row) Employee {
	return Employee{
		Name:      strings.TrimSpace(row.Text("first_name") + " " + row.Text("last_name")),
		Email:     row.Get("corporate_email_address"),
		Status:    row.Get("status"),
		JobTitle:  row.Get("job_title"),
		ContactID: row.Get("contact_id"),
		MarketingClient: MarketingClient{
			ID:      row.Get("marketing_client_id"),
			Name:    row.Get("marketing_client_name"),
			Country: row.Get("marketing_client_country"),
			Status:  row.Get("marketing_client_status"),
		},
		PrimaryTeam:             row.Get("primary_team"),
		PrimaryPosition:         row.Get("primary_position"),
		PrimaryTeamRegion:       row.Get("primary_team_region"),
		PrimaryTeamBusinessLine: row.Get("primary_team_business_line"),
		Created:                 row.Get("created"),
		LastUpdated:             row.Get("last_update"),
		FullData:                row,
	}
}

// getProfile handles GET /profile/{subject}.
func (h *Handler) getProfile(ctx context.Context, c *call) response {
	raw := chi.URLParam(c.r, "subject")
	c.params["subject"] = raw

	subject, err := sqlsafe.Validate(raw, sqlsafe.SubjectID)
	if err != nil {
		h.logger.Warn("invalid subject identifier", "error", err, "user_id", userID(c.caller))
		return fail(http.StatusBadRequest, "Invalid user identifier format")
	}

	empStmt, histStmt, err := h.subjectStatements(subject, false)
	if err != nil {
		return h.internalError(ctx, c, err, "build profile statements", http.StatusInternalServerError, "Unable to fetch user profile")
	}

	var employees, history []query.Row
	err = query.WithSession(ctx, h.factory, func(s query.Session) error {
		if employees, err = s.Execute(ctx, empStmt); err != nil || len(employees) == 0 {
			return err
		}
		history, err = s.Execute(ctx, histStmt)
		return err
	})
	if err != nil {
		return h.internalError(ctx, c, err, "get profile", http.StatusInternalServerError, "Unable to fetch user profile")
	}
	if len(employees) == 0 {
		return fail(http.StatusNotFound, fmt.Sprintf("No employee data found for oidc_sub: %s", subject))
	}
	if history == nil {
		history = []query.Row{}
	}

	return ok(ProfileResponse{
		Success:      true,
		Subject:      subject,
		Employee:     shapeEmployee(employees[0]),
		History:      history,
		HistoryCount: len(history),
	})
}

// getMe handles GET /me/trino-data for the authenticated caller's own
// subject.
func (h *Handler) getMe(ctx context.Context, c *call) response {
	if c.caller == nil || c.caller.Subject == "" {
		return fail(http.StatusBadRequest, "User does not have oidc_sub")
	}
	subject, err := sqlsafe.Validate(c.caller.Subject, sqlsafe.SubjectID)
	if err != nil {
		h.logger.Warn("invalid subject on caller", "user_id", c.caller.UserID)
		return fail(http.StatusBadRequest, "Invalid user identifier")
	}

	empStmt, histStmt, err := h.subjectStatements(subject, true)
	if err != nil {
		return h.internalError(ctx, c, err, "build self statements", http.StatusInternalServerError, "Failed to fetch Trino data")
	}

	var employees, history []query.Row
	err = query.WithSession(ctx, h.factory, func(s query.Session) error {
		if employees, err = s.Execute(ctx, empStmt); err != nil || len(employees) == 0 {
			return err
		}
		history, err = s.Execute(ctx, histStmt)
		return err
	})
	if err != nil {
		return h.internalError(ctx, c, err, "get self data", http.StatusInternalServerError, "Failed to fetch Trino data")
	}
	if len(employees) == 0 {
		return fail(http.StatusNotFound, "No employee data found")
	}

	var latest query.Row
	if len(history) > 0 {
		latest = history[0]
	}
	return ok(Envelope{Success: true, Data: SelfData{
		JobTitle: employees[0].Get("job_title"),
		TeamName: latest.Get("team_name"),
		Country:  latest.Get("country"),
		Metier:   latest.Get("metier"),
		GBL:      latest.Get("gbl"),
		Disabled: latest.Get("disabled"),
		FLCFlag:  latest.Get("flc_flag"),
	}})
}

// subjectStatements builds the employee lookup and the history query for
// subject. History is unbounded unless latestOnly restricts it to the most
// recent row.
func (h *Handler) subjectStatements(subject string, latestOnly bool) (query.Statement, query.Statement, error) {
	emp, err := h.builder.Select(h.tables.Employees.Name,
		sqlsafe.FilterSpec{h.tables.Employees.SubjectColumn: subject},
		sqlsafe.WithLimit(1))
	if err != nil {
		return query.Statement{}, query.Statement{}, err
	}

	opts := []sqlsafe.Option{sqlsafe.WithOrderBy(h.tables.History.OrderColumn, true)}
	if latestOnly {
		opts = append(opts, sqlsafe.WithLimit(1))
	}
	hist, err := h.builder.Select(h.tables.History.Name,
		sqlsafe.FilterSpec{h.tables.History.SubjectColumn: subject},
		opts...)
	if err != nil {
		return query.Statement{}, query.Statement{}, err
	}
	return emp, hist, nil
}
