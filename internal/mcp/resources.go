package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const recentLogsDays = 14

func (h *handlers) recentLogs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	end := time.Now()

	logs, err := h.ds.QueryWorkoutLogs(ctx, end.AddDate(0, 0, -recentLogsDays), end, uid)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"days":     recentLogsDays,
		"sessions": logs,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
