package handler

import (
	"time"

	"buzzdigest/internal/model"
)

type RunResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	SummaryKey  string `json:"summary_key"`
	EntityCount int    `json:"entity_count"`
	CreatedAt   string `json:"created_at"`
}

type RunsResponse struct {
	Runs   []RunResponse `json:"runs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func toRunResponse(r model.Run) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Date:        r.Date,
		Status:      r.Status,
		SummaryKey:  r.SummaryKey,
		EntityCount: r.EntityCount,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}
