package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func quietConfig() Config {
	return Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timezone: time.UTC,
	}
}

func TestSchedulerRegisterRejectsDuplicates(t *testing.T) {
	s := New(quietConfig())
	job := &countingJob{name: "pass"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	err := s.Register(job, NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestSchedulerRegisterRejectsNilArguments(t *testing.T) {
	s := New(quietConfig())

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "j"}, nil), ErrNilSchedule)
}

func TestSchedulerRunNow(t *testing.T) {
	s := New(quietConfig())
	job := &countingJob{name: "pass"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "pass")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSchedulerStartStop(t *testing.T) {
	s := New(quietConfig())
	require.NoError(t, s.Register(&countingJob{name: "pass"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestSchedulerListJobs(t *testing.T) {
	s := New(quietConfig())
	require.NoError(t, s.Register(&countingJob{name: "pass"}, NewIntervalSchedule(time.Hour)))

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "pass", infos[0].Name)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, "@every 1h0m0s", infos[0].Schedule)

	require.NoError(t, s.DisableJob("pass"))
	assert.False(t, s.ListJobs()[0].Enabled)
	require.NoError(t, s.EnableJob("pass"))

	assert.ErrorIs(t, s.DisableJob("unknown"), ErrJobNotFound)
}

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	base := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(15*time.Minute), s.Next(base))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestCronScheduleWeeklyMorning(t *testing.T) {
	// Monday 08:00 in UTC.
	s, err := NewCronSchedule(EveryMonday8AM, time.UTC)
	require.NoError(t, err)

	// From a Friday the next activation is the following Monday.
	friday := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	next := s.Next(friday)

	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC), next)
}

func TestCronScheduleHonorsLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	s, err := NewCronSchedule(EveryDay9AM, ny)
	require.NoError(t, err)

	// 13:00 UTC on Jan 8 is 08:00 in New York; next 09:00 ET is an hour away.
	utcNoon := time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC)
	next := s.Next(utcNoon)

	assert.Equal(t, 9, next.In(ny).Hour())
	assert.Equal(t, time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC), next.UTC())
}

func TestCronScheduleRejectsMalformedExpression(t *testing.T) {
	_, err := NewCronSchedule("not a cron", time.UTC)
	assert.Error(t, err)
}
