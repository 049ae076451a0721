package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"fieldops/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves admin reports.
type ReportHandler struct {
	svc service.ReportService
	loc *time.Location
}

// NewReportHandler creates a new report handler. Plain dates are read in loc.
func NewReportHandler(svc service.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{svc: svc, loc: loc}
}

func (h *ReportHandler) weeklyQuery(c echo.Context) (service.WeeklyQuery, error) {
	userID, err := parseOptionalID(c.QueryParam("userId"))
	if err != nil {
		return service.WeeklyQuery{}, err
	}
	from, to, err := parseDayRange(c.QueryParam("startDate"), c.QueryParam("endDate"), h.loc)
	if err != nil {
		return service.WeeklyQuery{}, err
	}
	return service.WeeklyQuery{
		Region: c.QueryParam("region"),
		UserID: userID,
		From:   from,
		To:     to,
	}, nil
}

// Weekly godoc
// @Summary Weekly per-technician job summary
// @Description Defaults to the seven days ending now.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param region query string false "Technician region"
// @Param userId query int false "Technician"
// @Param startDate query string false "From (YYYY-MM-DD)"
// @Param endDate query string false "To (YYYY-MM-DD)"
// @Success 200 {object} service.WeeklyReport
// @Failure 400 {object} errors.ErrorResponse
// @Router /reports/weekly [get]
func (h *ReportHandler) Weekly(c echo.Context) error {
	q, err := h.weeklyQuery(c)
	if err != nil {
		return err
	}
	report, err := h.svc.Weekly(c.Request().Context(), q)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// ExportWeekly godoc
// @Summary Weekly summary as an Excel workbook
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param region query string false "Technician region"
// @Param userId query int false "Technician"
// @Param startDate query string false "From (YYYY-MM-DD)"
// @Param endDate query string false "To (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Router /reports/weekly/export [get]
func (h *ReportHandler) ExportWeekly(c echo.Context) error {
	q, err := h.weeklyQuery(c)
	if err != nil {
		return err
	}
	data, err := h.svc.ExportWeekly(c.Request().Context(), q)
	if err != nil {
		return respondError(err)
	}

	filename := fmt.Sprintf("weekly-report-%s.xlsx", time.Now().In(h.loc).Format(dateLayout))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}

// TechnicianJobs godoc
// @Summary Jobs assigned to a technician
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Technician ID"
// @Success 200 {array} model.Job
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/technician/{id} [get]
func (h *ReportHandler) TechnicianJobs(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	jobs, err := h.svc.TechnicianJobs(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// JobHistory godoc
// @Summary Status history of a job, oldest first
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param jobId query int true "Job ID"
// @Success 200 {array} model.JobHistory
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/jobs/history [get]
func (h *ReportHandler) JobHistory(c echo.Context) error {
	jobID, err := parseOptionalID(c.QueryParam("jobId"))
	if err != nil {
		return err
	}
	if jobID == nil {
		return badRequest("JOB_ID_REQUIRED", "jobId is required")
	}
	history, err := h.svc.JobHistory(c.Request().Context(), *jobID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, history)
}

// ActiveTechnicians godoc
// @Summary Online technicians with their last position
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.ActiveTechnician
// @Router /reports/technicians/active [get]
func (h *ReportHandler) ActiveTechnicians(c echo.Context) error {
	techs, err := h.svc.ActiveTechnicians(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, techs)
}

// RollCall godoc
// @Summary Roll calls of a day
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param region query string false "Region"
// @Param date query string false "Day (YYYY-MM-DD), today by default"
// @Success 200 {array} model.RollCall
// @Failure 400 {object} errors.ErrorResponse
// @Router /reports/rollcall [get]
func (h *ReportHandler) RollCall(c echo.Context) error {
	rollCalls, err := h.svc.RollCallSummary(c.Request().Context(), c.QueryParam("region"), c.QueryParam("date"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, rollCalls)
}
