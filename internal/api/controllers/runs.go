package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/segfetch/internal/app"
	"github.com/datallboy/segfetch/internal/domain"
)

const maxListLimit = 500

type RunsController struct {
	App *app.Context
}

// List returns the most recent runs, newest first. ?limit=N caps the count.
func (ctrl *RunsController) List(c *echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = min(n, maxListLimit)
	}

	runs, err := ctrl.App.History.ListRuns(c.Request().Context(), limit)
	if err != nil {
		ctrl.App.Logger.Error("List runs: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not list runs"})
	}
	if runs == nil {
		runs = make([]*domain.RunRecord, 0)
	}

	return c.JSON(http.StatusOK, RunList{Runs: runs, Count: len(runs)})
}

// Get returns a single run by id
func (ctrl *RunsController) Get(c *echo.Context) error {
	id := c.Param("id")

	run, err := ctrl.App.History.GetRun(c.Request().Context(), id)
	if err != nil {
		ctrl.App.Logger.Error("Get run %s: %v", id, err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not load run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	}

	return c.JSON(http.StatusOK, run)
}
