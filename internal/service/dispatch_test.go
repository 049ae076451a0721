package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/repository/memstore"
)

func newJobInput(reg string, status model.JobStatus) JobInput {
	scheduled := fixedNow().Add(24 * time.Hour)
	return JobInput{
		VehicleReg: reg,
		Status:     status,
		JobFields: JobFields{
			JobType:       "INSTALL",
			ScheduledDate: &scheduled,
			Location:      "Nairobi",
		},
	}
}

func countJobs(t *testing.T, st *memstore.Store) int64 {
	t.Helper()
	_, total, err := st.Jobs().List(context.Background(), repository.JobFilter{})
	require.NoError(t, err)
	return total
}

func TestNormalizeVehicleReg(t *testing.T) {
	assert.Equal(t, "KDA 123A", NormalizeVehicleReg("  kda   123a "))
	assert.Equal(t, "", NormalizeVehicleReg("   "))
}

func TestDispatch_CreateOrMerge_Create(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)
	admin := createUser(t, st, "admin", model.RoleAdmin, "")

	job, created, err := d.CreateOrMerge(ctx, st, admin.ID, newJobInput("kda 123a", ""))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "KDA 123A", job.VehicleReg)
	assert.Equal(t, model.JobStatusPending, job.Status)

	history, err := st.Jobs().ListHistory(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Job created", history[0].Remarks)
	assert.Equal(t, admin.ID, history[0].UpdatedBy)
}

func TestDispatch_CreateOrMerge_DuplicatePending(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)

	first, _, err := d.CreateOrMerge(ctx, st, 1, newJobInput("KDA 123A", model.JobStatusPending))
	require.NoError(t, err)

	_, _, err = d.CreateOrMerge(ctx, st, 1, newJobInput("kda  123A", model.JobStatusPending))
	var duplicate *apperrors.DuplicateJobError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "KDA 123A", duplicate.VehicleReg)
	assert.Equal(t, first.ID, duplicate.JobID)
	assert.Equal(t, "PENDING", duplicate.Status)
	assert.Equal(t, int64(1), countJobs(t, st))
}

func TestDispatch_CreateOrMerge_JobInProgress(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)
	tech := createUser(t, st, "otieno", model.RoleTechnician, "Nairobi")

	first, _, err := d.CreateOrMerge(ctx, st, tech.ID, newJobInput("KDA 1", model.JobStatusPending))
	require.NoError(t, err)
	_, err = d.Start(ctx, st, first.ID, tech.ID, model.Coordinates{})
	require.NoError(t, err)

	_, _, err = d.CreateOrMerge(ctx, st, tech.ID, newJobInput("KDA 1", model.JobStatusPending))
	var duplicate *apperrors.DuplicateJobError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "IN_PROGRESS", duplicate.Status)
	assert.Contains(t, err.Error(), "an open job (IN_PROGRESS)")
	assert.NotContains(t, err.Error(), "pending")
	assert.Equal(t, int64(1), countJobs(t, st))

	merged, created, err := d.CreateOrMerge(ctx, st, tech.ID, newJobInput("KDA 1", model.JobStatusDone))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, model.JobStatusDone, merged.Status)
	assert.Equal(t, int64(1), countJobs(t, st))
}

func TestDispatch_CreateOrMerge_MergesIntoOpenJob(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)

	first, _, err := d.CreateOrMerge(ctx, st, 1, newJobInput("KDA 123A", model.JobStatusPending))
	require.NoError(t, err)

	in := JobInput{
		VehicleReg: "KDA 123A",
		Status:     model.JobStatusInProgress,
		JobFields:  JobFields{ClientName: "Acme Transport"},
	}
	merged, created, err := d.CreateOrMerge(ctx, st, 1, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, model.JobStatusInProgress, merged.Status)
	assert.Equal(t, "Acme Transport", merged.ClientName)
	assert.Equal(t, "INSTALL", merged.JobType)
	assert.Equal(t, "Nairobi", merged.Location)
	assert.Equal(t, int64(1), countJobs(t, st))

	history, err := st.Jobs().ListHistory(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.JobStatusInProgress, history[1].Status)
}

func TestDispatch_CreateOrMerge_NewJobAfterClosedOne(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)

	first, _, err := d.CreateOrMerge(ctx, st, 1, newJobInput("KDA 123A", model.JobStatusPending))
	require.NoError(t, err)
	_, _, err = d.Update(ctx, st, first.ID, 1, JobUpdate{Status: statusPtr(model.JobStatusDone)}, nil)
	require.NoError(t, err)

	second, created, err := d.CreateOrMerge(ctx, st, 1, newJobInput("KDA 123A", model.JobStatusPending))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(2), countJobs(t, st))
}

func TestDispatch_CreateOrMerge_Validation(t *testing.T) {
	st := newTestStore()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)

	noType := newJobInput("KDA 1", "")
	noType.JobType = ""
	noDate := newJobInput("KDA 2", "")
	noDate.ScheduledDate = nil
	ghostTech := newJobInput("KDA 3", "")
	ghostTech.TechnicianID = uintPtr(404)

	tests := []struct {
		name string
		in   JobInput
		want error
	}{
		{"missing registration", newJobInput(" ", ""), apperrors.Validation("VEHICLE_REG_REQUIRED", "")},
		{"unknown status", newJobInput("KDA 0", "CANCELLED"), apperrors.Validation("INVALID_STATUS", "")},
		{"missing job type", noType, apperrors.Validation("JOB_TYPE_REQUIRED", "")},
		{"missing scheduled date", noDate, apperrors.Validation("SCHEDULED_DATE_REQUIRED", "")},
		{"unknown technician", ghostTech, apperrors.NotFound("TECHNICIAN_NOT_FOUND", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := d.CreateOrMerge(context.Background(), st, 1, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, countJobs(t, st))
}

func TestDispatch_Start(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)
	tech := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")
	job := createJob(t, st, &model.Job{VehicleReg: "KDA 123A", TechnicianID: uintPtr(tech.ID)})

	started, err := d.Start(ctx, st, job.ID, tech.ID, model.NewCoordinates(siteLat, siteLng))
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, started.Status)

	history, err := st.Jobs().ListHistory(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Job started", history[0].Remarks)
	assert.Equal(t, siteLat, *history[0].Latitude)

	active, err := st.Sessions().ListActive(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, siteLat, *active[0].Latitude)

	_, err = d.Start(ctx, st, 999, tech.ID, model.Coordinates{})
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}

func TestDispatch_Transitions(t *testing.T) {
	tests := []struct {
		from    model.JobStatus
		to      model.JobStatus
		wantErr bool
	}{
		{model.JobStatusPending, model.JobStatusDone, false},
		{model.JobStatusInProgress, model.JobStatusEscalated, false},
		{model.JobStatusEscalated, model.JobStatusEscalated, false},
		{model.JobStatusDone, model.JobStatusInProgress, true},
		{model.JobStatusEscalated, model.JobStatusDone, true},
		{model.JobStatusInProgress, model.JobStatusPending, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			st := newTestStore()
			d := NewDispatch(NewSessions(fixedNow), fixedNow)
			job := createJob(t, st, &model.Job{VehicleReg: "KDA 1", Status: tt.from})

			updated, previous, err := d.Update(context.Background(), st, job.ID, 1, JobUpdate{Status: statusPtr(tt.to)}, nil)
			if tt.wantErr {
				var transition *apperrors.TransitionError
				require.ErrorAs(t, err, &transition)
				stored, err := st.Jobs().FindByID(context.Background(), job.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, previous)
			assert.Equal(t, tt.to, updated.Status)
		})
	}
}

func TestDispatch_Update_MergesFieldsAndAttachesPhotos(t *testing.T) {
	st := newTestStore()
	ctx := context.Background()
	d := NewDispatch(NewSessions(fixedNow), fixedNow)
	tech := createUser(t, st, "tech", model.RoleTechnician, "Nairobi")
	job := createJob(t, st, &model.Job{VehicleReg: "KDA 1", ClientName: "Old", Notes: "keep"})
	_, err := NewSessions(fixedNow).Open(ctx, st, tech.ID, model.Coordinates{})
	require.NoError(t, err)

	in := JobUpdate{
		Status: statusPtr(model.JobStatusDone),
		JobFields: JobFields{
			ClientName:     "New",
			GovernorSerial: "GV-42",
			TechnicianID:   uintPtr(tech.ID),
			Remarks:        "installed",
		},
		Coords: model.NewCoordinates(siteLat, siteLng),
	}
	updated, _, err := d.Update(ctx, st, job.ID, tech.ID, in, []string{"/uploads/a.jpg", "/uploads/b.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.ClientName)
	assert.Equal(t, "keep", updated.Notes)
	assert.Equal(t, "GV-42", updated.GovernorSerial)
	assert.Equal(t, tech.ID, *updated.TechnicianID)

	detailed, err := st.Jobs().FindDetailed(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, detailed.Photos, 2)
	require.Len(t, detailed.History, 1)
	assert.Equal(t, model.JobStatusDone, detailed.History[0].Status)
	assert.Equal(t, "installed", detailed.History[0].Remarks)
	assert.Equal(t, siteLat, *detailed.History[0].Latitude)

	active, err := st.Sessions().ListActive(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, siteLng, *active[0].Longitude)
}
