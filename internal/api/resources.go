package api

import (
	"context"

	"github.com/atikulmunna/pulse/internal/model"
)

// List fetches a JSON array from path.
func List[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if err := c.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) Leads(ctx context.Context) ([]model.Lead, error) {
	return List[model.Lead](ctx, c, PathLeads)
}

func (c *Client) Registrations(ctx context.Context) ([]model.Registration, error) {
	return List[model.Registration](ctx, c, PathRegistrations)
}

func (c *Client) Reports(ctx context.Context) ([]model.Report, error) {
	return List[model.Report](ctx, c, PathReports)
}

func (c *Client) Sessions(ctx context.Context) ([]model.SessionSummary, error) {
	return List[model.SessionSummary](ctx, c, PathSessions)
}

// SessionHistory returns the stored exchanges of one chat session, oldest first.
func (c *Client) SessionHistory(ctx context.Context, sessionID string) ([]model.SessionMessage, error) {
	return List[model.SessionMessage](ctx, c, ItemPath(PathSessionHistory, sessionID))
}

func (c *Client) Profiles(ctx context.Context) ([]model.Profile, error) {
	return List[model.Profile](ctx, c, PathProfiles)
}

func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var s model.DashboardStats
	err := c.GetJSON(ctx, PathDashboardStats, &s)
	return s, err
}

func (c *Client) Intelligence(ctx context.Context) (model.Intelligence, error) {
	var in model.Intelligence
	err := c.GetJSON(ctx, PathIntelligence, &in)
	return in, err
}

// Graph fetches the knowledge-graph topology.
func (c *Client) Graph(ctx context.Context) (model.Graph, error) {
	var g model.Graph
	err := c.GetJSON(ctx, PathGraph, &g)
	return g, err
}
