package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-maintenance/internal/services"
	"ticket-maintenance/pkg/logger"
)

type MaintenanceRunner interface {
	Run(ctx context.Context) (*services.Report, error)
	LastReport() (*services.Report, bool)
}

type MaintenanceHandler struct {
	maintenance MaintenanceRunner
	logger      logger.Logger
}

func NewMaintenanceHandler(maintenance MaintenanceRunner, l logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenance: maintenance,
		logger:      l,
	}
}

// RunMaintenance - trigger a full maintenance run and wait for the report
func (h *MaintenanceHandler) RunMaintenance(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	report, err := h.maintenance.Run(ctx)
	if err != nil {
		h.logger.Errorf(ctx, "Manual maintenance run failed: %v", err)
		return e.JSON(http.StatusInternalServerError, map[string]any{
			"status": "failure",
			"error":  err.Error(),
		})
	}

	if report.Skipped {
		return e.JSON(http.StatusConflict, map[string]any{
			"status":  "skipped",
			"message": "Another maintenance run is in progress",
			"report":  report,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Scheduled maintenance completed",
		"healthy": report.Healthy(),
		"report":  report,
	})
}

// GetLastReport - report of the most recent completed run
func (h *MaintenanceHandler) GetLastReport(e *core.RequestEvent) error {
	report, ok := h.maintenance.LastReport()
	if !ok {
		return apis.NewNotFoundError("No maintenance run has completed yet", nil)
	}
	return e.JSON(http.StatusOK, report)
}
