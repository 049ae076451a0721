package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository"
)

const (
	defaultReportWindow = 7 * 24 * time.Hour
	unassignedLabel     = "Unassigned"
	weeklySheet         = "Weekly"
)

// WeeklyQuery selects the jobs counted in a weekly report. Zero From/To
// default to the seven days ending now.
type WeeklyQuery struct {
	Region string
	UserID *uint
	From   *time.Time
	To     *time.Time
}

// TechnicianSummary counts one technician's jobs in the report window.
type TechnicianSummary struct {
	TechnicianID *uint  `json:"technicianId,omitempty"`
	Technician   string `json:"technician"`
	Total        int    `json:"total"`
	Done         int    `json:"done"`
	Pending      int    `json:"pending"`
	InProgress   int    `json:"inProgress"`
	Escalated    int    `json:"escalated"`
}

// WeeklyReport is the per-technician job summary for a window.
type WeeklyReport struct {
	From        time.Time           `json:"from"`
	To          time.Time           `json:"to"`
	Technicians []TechnicianSummary `json:"technicians"`
}

// ActiveTechnician is an online technician with their last known position.
type ActiveTechnician struct {
	model.User
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	LoginTime *time.Time `json:"loginTime,omitempty"`
}

// ReportService produces admin reports.
type ReportService interface {
	Weekly(ctx context.Context, q WeeklyQuery) (*WeeklyReport, error)
	// ExportWeekly renders the weekly report as an xlsx workbook.
	ExportWeekly(ctx context.Context, q WeeklyQuery) ([]byte, error)
	TechnicianJobs(ctx context.Context, technicianID uint) ([]model.Job, error)
	JobHistory(ctx context.Context, jobID uint) ([]model.JobHistory, error)
	ActiveTechnicians(ctx context.Context) ([]ActiveTechnician, error)
	RollCallSummary(ctx context.Context, region, day string) ([]model.RollCall, error)
}

type reportService struct {
	store      repository.Store
	attendance *Attendance
	now        func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(store repository.Store, attendance *Attendance, now func() time.Time) ReportService {
	if now == nil {
		now = time.Now
	}
	return &reportService{store: store, attendance: attendance, now: now}
}

func (s *reportService) Weekly(ctx context.Context, q WeeklyQuery) (*WeeklyReport, error) {
	to := s.now()
	if q.To != nil {
		to = *q.To
	}
	from := to.Add(-defaultReportWindow)
	if q.From != nil {
		from = *q.From
	}
	if from.After(to) {
		return nil, apperrors.Validation("INVALID_DATE_RANGE", "startDate must not be after endDate")
	}

	jobs, _, err := s.store.Jobs().List(ctx, repository.JobFilter{
		TechnicianID: q.UserID,
		Region:       q.Region,
		From:         &from,
		To:           &to,
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	byTech := map[uint]*TechnicianSummary{}
	var unassigned *TechnicianSummary
	for i := range jobs {
		job := &jobs[i]
		var row *TechnicianSummary
		if job.TechnicianID == nil {
			if unassigned == nil {
				unassigned = &TechnicianSummary{Technician: unassignedLabel}
			}
			row = unassigned
		} else {
			row = byTech[*job.TechnicianID]
			if row == nil {
				id := *job.TechnicianID
				row = &TechnicianSummary{TechnicianID: &id, Technician: fmt.Sprintf("#%d", id)}
				if job.Technician != nil {
					row.Technician = job.Technician.Name
				}
				byTech[id] = row
			}
		}

		row.Total++
		switch job.Status {
		case model.JobStatusDone:
			row.Done++
		case model.JobStatusPending:
			row.Pending++
		case model.JobStatusInProgress:
			row.InProgress++
		case model.JobStatusEscalated:
			row.Escalated++
		}
	}

	rows := make([]TechnicianSummary, 0, len(byTech)+1)
	for _, row := range byTech {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Technician != rows[j].Technician {
			return rows[i].Technician < rows[j].Technician
		}
		return *rows[i].TechnicianID < *rows[j].TechnicianID
	})
	if unassigned != nil {
		rows = append(rows, *unassigned)
	}

	return &WeeklyReport{From: from, To: to, Technicians: rows}, nil
}

func (s *reportService) ExportWeekly(ctx context.Context, q WeeklyQuery) ([]byte, error) {
	report, err := s.Weekly(ctx, q)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", weeklySheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	header := []interface{}{"Technician", "Total", "Done", "Pending", "In progress", "Escalated"}
	if err := f.SetSheetRow(weeklySheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range report.Technicians {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{row.Technician, row.Total, row.Done, row.Pending, row.InProgress, row.Escalated}
		if err := f.SetSheetRow(weeklySheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *reportService) TechnicianJobs(ctx context.Context, technicianID uint) ([]model.Job, error) {
	if _, err := s.store.Users().FindByID(ctx, technicianID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}
	jobs, _, err := s.store.Jobs().List(ctx, repository.JobFilter{TechnicianID: &technicianID})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	return jobs, nil
}

func (s *reportService) JobHistory(ctx context.Context, jobID uint) ([]model.JobHistory, error) {
	if _, err := s.store.Jobs().FindByID(ctx, jobID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrJobNotFound
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	history, err := s.store.Jobs().ListHistory(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job history: %w", err)
	}
	if history == nil {
		history = []model.JobHistory{}
	}
	return history, nil
}

func (s *reportService) ActiveTechnicians(ctx context.Context) ([]ActiveTechnician, error) {
	online := true
	users, err := s.store.Users().List(ctx, repository.UserFilter{Role: model.RoleTechnician, Online: &online})
	if err != nil {
		return nil, fmt.Errorf("list online technicians: %w", err)
	}

	out := make([]ActiveTechnician, 0, len(users))
	for _, u := range users {
		row := ActiveTechnician{User: u}
		latest, err := s.store.Sessions().Latest(ctx, u.ID)
		switch {
		case err == nil:
			row.Latitude, row.Longitude = latest.Latitude, latest.Longitude
			login := latest.LoginTime
			row.LoginTime = &login
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("latest session: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}

// RollCallSummary returns the roll calls of day (today when empty),
// optionally narrowed to one region.
func (s *reportService) RollCallSummary(ctx context.Context, region, day string) ([]model.RollCall, error) {
	if day == "" {
		day = s.attendance.Today()
	} else if _, err := time.Parse(dayLayout, day); err != nil {
		return nil, apperrors.Validation("INVALID_DATE", "date must be YYYY-MM-DD")
	}
	rollCalls, err := s.store.RollCalls().List(ctx, repository.RollCallFilter{Region: region, FromDay: day, ToDay: day})
	if err != nil {
		return nil, fmt.Errorf("list roll calls: %w", err)
	}
	if rollCalls == nil {
		rollCalls = []model.RollCall{}
	}
	return rollCalls, nil
}
