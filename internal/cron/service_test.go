package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestRunOnceRunsEveryJobAndCombinesErrors(t *testing.T) {
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	worse := &countingJob{name: "worse", err: errors.New("bang")}
	lock := &fakeLock{}
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(bad, ok, worse),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Contains(t, err.Error(), "worse: bang")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, bad.runs)
	assert.Equal(t, 1, worse.runs)
	assert.Equal(t, 1, lock.released)

	assert.Equal(t, float64(1), runsTotal(t, reg, "ok", "success"))
	assert.Equal(t, float64(1), runsTotal(t, reg, "bad", "failure"))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

func TestRegistryKeepsOrder(t *testing.T) {
	a := &countingJob{name: "a"}
	b := &countingJob{name: "b"}
	r := NewRegistry(a, nil)
	r.Register(b)
	assert.Equal(t, []string{"a", "b"}, r.Names())

	jobs := r.Jobs()
	jobs[0] = nil
	assert.NotNil(t, r.Jobs()[0])
}

func runsTotal(t *testing.T, reg *prometheus.Registry, job, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "marketplace_cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == job && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
