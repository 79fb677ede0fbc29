package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) recoveryMap(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	states, err := h.ds.RecoveryMap(ctx, UserIDFromContext(ctx), time.Time{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, states)
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	defs, err := h.ds.Exercises(ctx, "")
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, defs)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
