package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
)

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m *memoryKV) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	v, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &interfaces.KeyValuePair{Key: key, Value: v}, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Upsert(ctx context.Context, key, value, description string) (bool, error) {
	_, err := m.Get(ctx, key)
	return err != nil, m.Set(ctx, key, value, description)
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return m.ListByPrefix(ctx, "")
}

func (m *memoryKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interfaces.KeyValuePair
	for k, v := range m.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, interfaces.KeyValuePair{Key: k, Value: v})
		}
	}
	return out, nil
}

type stubGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *stubGenerator) GenerateDaily(ctx context.Context, now time.Time) (*models.DailyBlog, error) {
	g.calls.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	return &models.DailyBlog{Topic: "Volume Analysis: The Hidden Market Indicator", Status: "ready_for_publishing", GeneratedAt: now}, nil
}

func defaultSchedulerConfig() common.SchedulerConfig {
	return common.SchedulerConfig{Enabled: true, PostTime: "09:00", Timezone: "Asia/Kolkata"}
}

func TestCronSpec(t *testing.T) {
	spec, err := CronSpec("09:00", "Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=Asia/Kolkata 0 9 * * *", spec)

	spec, err = CronSpec("18:45", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "CRON_TZ=UTC 45 18 * * *", spec)

	for _, bad := range []struct{ postTime, tz string }{
		{"9", "UTC"},
		{"24:00", "UTC"},
		{"09:60", "UTC"},
		{"ab:cd", "UTC"},
		{"09:00", "Mars/Olympus"},
	} {
		_, err := CronSpec(bad.postTime, bad.tz)
		assert.Error(t, err, "%s %s", bad.postTime, bad.tz)
	}
}

func TestConfigure_PersistsAndReportsNextPost(t *testing.T) {
	// Arrange
	kv := newMemoryKV()
	svc := NewService(&stubGenerator{}, kv, defaultSchedulerConfig(), arbor.NewLogger())

	// Act
	status, err := svc.Configure(context.Background(), models.AutoBlogSchedule{
		Enabled:  true,
		PostTime: "07:30",
		Timezone: "America/New_York",
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, "07:30", status.PostTime)
	assert.Equal(t, "America/New_York", status.Timezone)
	assert.Contains(t, status.Message, "07:30")
	require.NotNil(t, status.NextPost)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	next := status.NextPost.In(loc)
	assert.Equal(t, 7, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.True(t, status.NextPost.After(time.Now()))
	assert.True(t, status.NextPost.Before(time.Now().Add(25*time.Hour)))

	stored, err := kv.Get(context.Background(), SettingsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"post_time":"07:30","timezone":"America/New_York"}`, stored)
}

func TestConfigure_ReplacesEntry(t *testing.T) {
	svc := NewService(&stubGenerator{}, newMemoryKV(), defaultSchedulerConfig(), arbor.NewLogger())
	ctx := context.Background()

	_, err := svc.Configure(ctx, models.AutoBlogSchedule{Enabled: true, PostTime: "09:00", Timezone: "UTC"})
	require.NoError(t, err)
	_, err = svc.Configure(ctx, models.AutoBlogSchedule{Enabled: true, PostTime: "10:00", Timezone: "UTC"})
	require.NoError(t, err)

	assert.Len(t, svc.cron.Entries(), 1)
}

func TestConfigure_Disabled(t *testing.T) {
	svc := NewService(&stubGenerator{}, newMemoryKV(), defaultSchedulerConfig(), arbor.NewLogger())
	ctx := context.Background()

	_, err := svc.Configure(ctx, models.AutoBlogSchedule{Enabled: true, PostTime: "09:00", Timezone: "UTC"})
	require.NoError(t, err)

	status, err := svc.Configure(ctx, models.AutoBlogSchedule{Enabled: false, PostTime: "09:00", Timezone: "UTC"})
	require.NoError(t, err)

	assert.False(t, status.Enabled)
	assert.Nil(t, status.NextPost)
	assert.Empty(t, svc.cron.Entries())
}

func TestConfigure_Validation(t *testing.T) {
	tests := []struct {
		name     string
		schedule models.AutoBlogSchedule
	}{
		{"bad time", models.AutoBlogSchedule{Enabled: true, PostTime: "25:00", Timezone: "UTC"}},
		{"missing time", models.AutoBlogSchedule{Enabled: true, Timezone: "UTC"}},
		{"bad timezone", models.AutoBlogSchedule{Enabled: true, PostTime: "09:00", Timezone: "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newMemoryKV()
			svc := NewService(&stubGenerator{}, kv, defaultSchedulerConfig(), arbor.NewLogger())

			_, err := svc.Configure(context.Background(), tt.schedule)

			var validationErrs validator.ValidationErrors
			assert.ErrorAs(t, err, &validationErrs)
			_, getErr := kv.Get(context.Background(), SettingsKey)
			assert.ErrorIs(t, getErr, interfaces.ErrKeyNotFound)
		})
	}
}

func TestStart_RestoresPersistedSchedule(t *testing.T) {
	// Arrange
	kv := newMemoryKV()
	require.NoError(t, kv.Set(context.Background(), SettingsKey, `{"enabled":true,"post_time":"21:15","timezone":"UTC"}`, ""))
	svc := NewService(&stubGenerator{}, kv, defaultSchedulerConfig(), arbor.NewLogger())

	// Act
	require.NoError(t, svc.Start(context.Background()))
	defer func() { _ = svc.Stop() }()

	// Assert
	status := svc.Status()
	assert.Equal(t, "21:15", status.PostTime)
	assert.Equal(t, "UTC", status.Timezone)
	require.NotNil(t, status.NextPost)
	assert.Equal(t, 21, status.NextPost.UTC().Hour())
	assert.Equal(t, 15, status.NextPost.UTC().Minute())

	assert.Error(t, svc.Start(context.Background()), "second start is rejected")
}

func TestStart_DefaultsWithoutPersistedSchedule(t *testing.T) {
	svc := NewService(&stubGenerator{}, nil, common.SchedulerConfig{Enabled: true}, arbor.NewLogger())

	require.NoError(t, svc.Start(context.Background()))
	defer func() { _ = svc.Stop() }()

	status := svc.Status()
	assert.Equal(t, "09:00", status.PostTime)
	assert.Equal(t, "Asia/Kolkata", status.Timezone)
	assert.NotNil(t, status.NextPost)
}

func TestStart_IgnoresCorruptPersistedSchedule(t *testing.T) {
	kv := newMemoryKV()
	require.NoError(t, kv.Set(context.Background(), SettingsKey, `not json`, ""))
	svc := NewService(&stubGenerator{}, kv, defaultSchedulerConfig(), arbor.NewLogger())

	require.NoError(t, svc.Start(context.Background()))
	defer func() { _ = svc.Stop() }()

	assert.Equal(t, "09:00", svc.Status().PostTime)
}

func TestStop_Idempotent(t *testing.T) {
	svc := NewService(&stubGenerator{}, nil, defaultSchedulerConfig(), arbor.NewLogger())

	assert.NoError(t, svc.Stop())
	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop())
	assert.NoError(t, svc.Stop())
}

func TestRunNow(t *testing.T) {
	gen := &stubGenerator{}
	svc := NewService(gen, nil, defaultSchedulerConfig(), arbor.NewLogger())

	daily, err := svc.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready_for_publishing", daily.Status)
	assert.Equal(t, int32(1), gen.calls.Load())

	lastRun, lastErr := svc.LastRun()
	assert.NotNil(t, lastRun)
	assert.Empty(t, lastErr)

	gen.err = errors.New("provider down")
	_, err = svc.RunNow(context.Background())
	assert.Error(t, err)
	_, lastErr = svc.LastRun()
	assert.Equal(t, "provider down", lastErr)
}

func TestExecuteJob_RecordsFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota")}
	svc := NewService(gen, nil, defaultSchedulerConfig(), arbor.NewLogger())

	assert.NotPanics(t, svc.executeJob)
	_, lastErr := svc.LastRun()
	assert.Equal(t, "quota", lastErr)
}

type panickingGenerator struct{}

func (panickingGenerator) GenerateDaily(ctx context.Context, now time.Time) (*models.DailyBlog, error) {
	panic("provider returned nil reply")
}

func TestExecuteJob_RecoversPanic(t *testing.T) {
	svc := NewService(panickingGenerator{}, nil, defaultSchedulerConfig(), arbor.NewLogger())

	assert.NotPanics(t, svc.executeJob)

	// The job lock was released, so a later run proceeds
	svc.generator = &stubGenerator{}
	_, err := svc.RunNow(context.Background())
	assert.NoError(t, err)
}
