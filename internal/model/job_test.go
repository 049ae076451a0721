package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusPending, true},
		{JobStatusPending, JobStatusInProgress, true},
		{JobStatusPending, JobStatusDone, true},
		{JobStatusPending, JobStatusEscalated, true},
		{JobStatusInProgress, JobStatusDone, true},
		{JobStatusInProgress, JobStatusEscalated, true},
		{JobStatusInProgress, JobStatusPending, false},
		{JobStatusDone, JobStatusDone, true},
		{JobStatusDone, JobStatusPending, false},
		{JobStatusDone, JobStatusInProgress, false},
		{JobStatusEscalated, JobStatusInProgress, false},
		{JobStatusEscalated, JobStatusDone, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, JobStatusDone.Terminal())
	assert.True(t, JobStatusEscalated.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusInProgress.Terminal())
	assert.False(t, JobStatus("CANCELLED").Valid())
}

func TestCoordinates(t *testing.T) {
	lat := -1.3
	assert.False(t, Coordinates{}.Present())
	assert.False(t, Coordinates{Latitude: &lat}.Present())

	p, ok := NewCoordinates(-1.3, 36.8).Point()
	assert.True(t, ok)
	assert.Equal(t, -1.3, p.Latitude)
	assert.Equal(t, 36.8, p.Longitude)
}
