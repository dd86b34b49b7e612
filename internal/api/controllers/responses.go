package controllers

import "github.com/datallboy/segfetch/internal/domain"

// RunList is the body of GET /api/runs.
type RunList struct {
	Runs  []*domain.RunRecord `json:"runs"`
	Count int                 `json:"count"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
