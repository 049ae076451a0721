package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"fieldops/internal/model"
	"fieldops/internal/service"
)

const maxPhotoBytes = 10 << 20

// JobHandler handles job dispatch endpoints.
type JobHandler struct {
	svc service.JobService
	loc *time.Location
}

// NewJobHandler creates a new job handler. Plain dates are read in loc.
func NewJobHandler(svc service.JobService, loc *time.Location) *JobHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &JobHandler{svc: svc, loc: loc}
}

// JobFieldsRequest holds the job attributes shared by create and update.
type JobFieldsRequest struct {
	JobType        string   `json:"jobType"`
	ScheduledDate  string   `json:"scheduledDate"`
	Location       string   `json:"location"`
	SiteLatitude   *float64 `json:"siteLatitude" validate:"omitempty,latitude"`
	SiteLongitude  *float64 `json:"siteLongitude" validate:"omitempty,longitude"`
	TechnicianID   *uint    `json:"technicianId"`
	ClientName     string   `json:"clientName"`
	ClientPhone    string   `json:"clientPhone"`
	GovernorSerial string   `json:"governorSerial"`
	GovernorStatus string   `json:"governorStatus"`
	Notes          string   `json:"notes"`
	Remarks        string   `json:"remarks"`
}

// CreateJobRequest is a create-or-merge request.
type CreateJobRequest struct {
	VehicleReg string `json:"vehicleReg" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS DONE ESCALATED"`
	JobFieldsRequest
}

// UpdateJobRequest is a JSON job update. Multipart updates use the same field names.
type UpdateJobRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS DONE ESCALATED"`
	JobFieldsRequest
	CoordinatesRequest
}

// CreateJobResponse reports whether a new job was created or merged.
type CreateJobResponse struct {
	Created bool       `json:"created"`
	Job     *model.Job `json:"job"`
}

func (r JobFieldsRequest) fields(loc *time.Location) (service.JobFields, error) {
	scheduled, err := parseTime(r.ScheduledDate, loc)
	if err != nil {
		return service.JobFields{}, err
	}
	return service.JobFields{
		JobType:        strings.ToUpper(strings.TrimSpace(r.JobType)),
		ScheduledDate:  scheduled,
		Location:       strings.TrimSpace(r.Location),
		Site:           model.Coordinates{Latitude: r.SiteLatitude, Longitude: r.SiteLongitude},
		TechnicianID:   r.TechnicianID,
		ClientName:     r.ClientName,
		ClientPhone:    r.ClientPhone,
		GovernorSerial: r.GovernorSerial,
		GovernorStatus: r.GovernorStatus,
		Notes:          r.Notes,
		Remarks:        r.Remarks,
	}, nil
}

// CreateJob godoc
// @Summary Create a job, or merge into the vehicle's open job
// @Description A second PENDING job for a vehicle with an open job is rejected; any other status is merged into the open job.
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateJobRequest true "Job"
// @Success 201 {object} CreateJobResponse
// @Success 200 {object} CreateJobResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /jobs [post]
func (h *JobHandler) CreateJob(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	var req CreateJobRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	fields, err := req.fields(h.loc)
	if err != nil {
		return err
	}

	job, created, err := h.svc.Create(c.Request().Context(), claims.UserID, service.JobInput{
		VehicleReg: req.VehicleReg,
		Status:     model.JobStatus(req.Status),
		JobFields:  fields,
	})
	if err != nil {
		return respondError(err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, CreateJobResponse{Created: created, Job: job})
}

// ListJobs godoc
// @Summary List jobs
// @Description Technicians only see their own jobs.
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param technicianId query int false "Technician"
// @Param region query string false "Technician region"
// @Param status query string false "Status"
// @Param startDate query string false "Scheduled from"
// @Param endDate query string false "Scheduled to"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.JobPage
// @Failure 400 {object} errors.ErrorResponse
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	techID, err := parseOptionalID(c.QueryParam("technicianId"))
	if err != nil {
		return err
	}
	if model.Role(claims.Role) == model.RoleTechnician {
		own := claims.UserID
		techID = &own
	}
	from, to, err := parseDayRange(c.QueryParam("startDate"), c.QueryParam("endDate"), h.loc)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.svc.List(c.Request().Context(), service.JobQuery{
		TechnicianID: techID,
		Region:       c.QueryParam("region"),
		Status:       model.JobStatus(strings.ToUpper(c.QueryParam("status"))),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetJob godoc
// @Summary Get a job with photos and history
// @Tags jobs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Success 200 {object} model.Job
// @Failure 404 {object} errors.ErrorResponse
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJob(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// StartJob godoc
// @Summary Start a job
// @Tags jobs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Param request body AttendanceRequest false "Device position"
// @Success 200 {object} model.Job
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /jobs/{id}/start [post]
func (h *JobHandler) StartJob(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req AttendanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	job, err := h.svc.Start(c.Request().Context(), id, claims.UserID, req.Coords())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

// UpdateJob godoc
// @Summary Update a job
// @Description Accepts JSON, or multipart/form-data with up to 5 jpg/jpeg/png files under "photos".
// @Tags jobs
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Job ID"
// @Param request body UpdateJobRequest false "Fields to change"
// @Success 200 {object} model.Job
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /jobs/{id} [put]
func (h *JobHandler) UpdateJob(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var (
		req    UpdateJobRequest
		photos []service.PhotoUpload
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if req, photos, err = readMultipartUpdate(c); err != nil {
			return err
		}
		if err := c.Validate(&req); err != nil {
			return badRequest("VALIDATION_FAILED", err.Error())
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fields, err := req.fields(h.loc)
	if err != nil {
		return err
	}
	in := service.JobUpdate{JobFields: fields, Coords: req.Coords()}
	if req.Status != "" {
		status := model.JobStatus(req.Status)
		in.Status = &status
	}

	job, err := h.svc.Update(c.Request().Context(), id, claims.UserID, in, photos)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func readMultipartUpdate(c echo.Context) (UpdateJobRequest, []service.PhotoUpload, error) {
	var req UpdateJobRequest
	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, invalidBody()
	}

	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req.Status = strings.ToUpper(value("status"))
	req.JobType = value("jobType")
	req.ScheduledDate = value("scheduledDate")
	req.Location = value("location")
	req.ClientName = value("clientName")
	req.ClientPhone = value("clientPhone")
	req.GovernorSerial = value("governorSerial")
	req.GovernorStatus = value("governorStatus")
	req.Notes = value("notes")
	req.Remarks = value("remarks")
	if req.TechnicianID, err = parseOptionalID(value("technicianId")); err != nil {
		return req, nil, err
	}
	for key, dst := range map[string]**float64{
		"latitude":      &req.Latitude,
		"longitude":     &req.Longitude,
		"siteLatitude":  &req.SiteLatitude,
		"siteLongitude": &req.SiteLongitude,
	} {
		if *dst, err = parseOptionalFloat(value(key)); err != nil {
			return req, nil, err
		}
	}

	files := form.File["photos"]
	if len(files) > service.MaxPhotosPerUpdate {
		return req, nil, badRequest("TOO_MANY_PHOTOS", "at most 5 photos per update")
	}
	photos := make([]service.PhotoUpload, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return req, nil, err
		}
		photos = append(photos, service.PhotoUpload{Filename: fh.Filename, Data: data})
	}
	return req, photos, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxPhotoBytes {
		return nil, badRequest("PHOTO_TOO_LARGE", "photos must be at most 10MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, invalidBody()
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil || len(data) > maxPhotoBytes {
		return nil, badRequest("PHOTO_TOO_LARGE", "photos must be at most 10MB")
	}
	return data, nil
}
