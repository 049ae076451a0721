package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "fieldops/internal/errors"
	"fieldops/internal/model"
	"fieldops/internal/repository/memstore"
	"fieldops/internal/storage"
)

type jobFixture struct {
	store    *memstore.Store
	files    *MockFileStore
	notifier *MockEscalationNotifier
	svc      JobService
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	st := newTestStore()
	files := new(MockFileStore)
	notifier := new(MockEscalationNotifier)
	dispatch := NewDispatch(NewSessions(fixedNow), fixedNow)
	return &jobFixture{
		store:    st,
		files:    files,
		notifier: notifier,
		svc:      NewJobService(st, dispatch, files, notifier, 800, fixedNow),
	}
}

func TestJobService_Update_StoresPhotos(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	job := createJob(t, f.store, &model.Job{VehicleReg: "KDA 1"})

	f.files.On("Save", mock.Anything, mock.MatchedBy(func(in storage.UploadInput) bool {
		return in.ContentType == "image/png"
	})).Return("/uploads/jobs/1/a.png", nil).Once()
	f.files.On("Save", mock.Anything, mock.Anything).Return("/uploads/jobs/1/b.png", nil).Once()

	photos := []PhotoUpload{{Filename: "a.png", Data: pngBytes(t)}, {Filename: "b.PNG", Data: pngBytes(t)}}
	updated, err := f.svc.Update(ctx, job.ID, 1, JobUpdate{Status: statusPtr(model.JobStatusInProgress)}, photos)
	require.NoError(t, err)
	require.Len(t, updated.Photos, 2)
	assert.Equal(t, model.JobStatusInProgress, updated.Status)
	f.files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.files.AssertExpectations(t)
}

func TestJobService_Update_DeletesPhotosWhenUpdateFails(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	job := createJob(t, f.store, &model.Job{VehicleReg: "KDA 1", Status: model.JobStatusDone})

	f.files.On("Save", mock.Anything, mock.Anything).Return("/uploads/a.png", nil).Once()
	f.files.On("Save", mock.Anything, mock.Anything).Return("/uploads/b.png", nil).Once()
	f.files.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()
	f.files.On("Delete", mock.Anything, "/uploads/b.png").Return(nil).Once()

	photos := []PhotoUpload{{Filename: "a.png", Data: pngBytes(t)}, {Filename: "b.png", Data: pngBytes(t)}}
	_, err := f.svc.Update(ctx, job.ID, 1, JobUpdate{Status: statusPtr(model.JobStatusPending)}, photos)

	var transition *apperrors.TransitionError
	require.ErrorAs(t, err, &transition)
	f.files.AssertExpectations(t)

	stored, err := f.store.Jobs().FindDetailed(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Photos)
	assert.Empty(t, stored.History)
}

func TestJobService_Update_DeletesEarlierPhotosWhenSaveFails(t *testing.T) {
	f := newJobFixture(t)
	job := createJob(t, f.store, &model.Job{VehicleReg: "KDA 1"})

	f.files.On("Save", mock.Anything, mock.Anything).Return("/uploads/a.png", nil).Once()
	f.files.On("Save", mock.Anything, mock.Anything).Return("", errors.New("bucket gone")).Once()
	f.files.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()

	photos := []PhotoUpload{{Filename: "a.png", Data: pngBytes(t)}, {Filename: "b.png", Data: pngBytes(t)}}
	_, err := f.svc.Update(context.Background(), job.ID, 1, JobUpdate{}, photos)
	assert.ErrorIs(t, err, apperrors.Unavailable("PHOTO_STORAGE_FAILED", "", nil))
	f.files.AssertExpectations(t)
}

func TestJobService_Update_RejectsPhotos(t *testing.T) {
	tests := []struct {
		name   string
		photos []PhotoUpload
		want   error
	}{
		{
			name:   "too many",
			photos: make([]PhotoUpload, MaxPhotosPerUpdate+1),
			want:   apperrors.Validation("TOO_MANY_PHOTOS", ""),
		},
		{
			name:   "wrong type",
			photos: []PhotoUpload{{Filename: "doc.pdf", Data: []byte("%PDF")}},
			want:   apperrors.Validation("INVALID_PHOTO_TYPE", ""),
		},
		{
			name:   "not an image",
			photos: []PhotoUpload{{Filename: "fake.jpg", Data: []byte("nope")}},
			want:   apperrors.Validation("INVALID_PHOTO", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(t)
			job := createJob(t, f.store, &model.Job{VehicleReg: "KDA 1"})
			for i := range tt.photos {
				if tt.photos[i].Filename == "" {
					tt.photos[i].Filename = fmt.Sprintf("p%d.jpg", i)
				}
			}

			_, err := f.svc.Update(context.Background(), job.ID, 1, JobUpdate{}, tt.photos)
			assert.ErrorIs(t, err, tt.want)
			f.files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestJobService_Update_NotifiesOnEscalation(t *testing.T) {
	f := newJobFixture(t)
	ctx := context.Background()
	job := createJob(t, f.store, &model.Job{VehicleReg: "KDA 1"})

	f.notifier.On("JobEscalated", mock.Anything, mock.MatchedBy(func(j *model.Job) bool {
		return j.ID == job.ID && j.Status == model.JobStatusEscalated
	}), "governor tampered").Return(errors.New("slack down")).Once()

	in := JobUpdate{Status: statusPtr(model.JobStatusEscalated), JobFields: JobFields{Remarks: "governor tampered"}}
	updated, err := f.svc.Update(ctx, job.ID, 1, in, nil)
	require.NoError(t, err, "notification failures must not fail the update")
	assert.Equal(t, model.JobStatusEscalated, updated.Status)

	// Staying escalated does not notify again.
	_, err = f.svc.Update(ctx, job.ID, 1, in, nil)
	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}

func TestJobService_List_Paginates(t *testing.T) {
	f := newJobFixture(t)
	base := fixedNow()
	for i := 0; i < 25; i++ {
		createJob(t, f.store, &model.Job{
			VehicleReg:    fmt.Sprintf("KDA %03d", i),
			ScheduledDate: base.Add(time.Duration(i) * time.Hour),
		})
	}

	page, err := f.svc.List(context.Background(), JobQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Jobs, 5)
	assert.Equal(t, "KDA 004", page.Jobs[0].VehicleReg)

	page, err = f.svc.List(context.Background(), JobQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Equal(t, 1, page.Page)

	_, err = f.svc.List(context.Background(), JobQuery{Status: "LOST"})
	assert.ErrorIs(t, err, apperrors.Validation("INVALID_STATUS", ""))
}

func TestJobService_Get(t *testing.T) {
	f := newJobFixture(t)
	_, err := f.svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)
}
