package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
)

// SettingsKey is the KV store key holding the persisted schedule
const SettingsKey = "scheduler:auto_blog"

// DefaultJobTimeout bounds one daily generation run
const DefaultJobTimeout = 5 * time.Minute

// DailyGenerator produces today's education post
type DailyGenerator interface {
	GenerateDaily(ctx context.Context, now time.Time) (*models.DailyBlog, error)
}

var _ interfaces.SchedulerService = (*Service)(nil)

// Service implements SchedulerService for the daily education blog
type Service struct {
	generator  DailyGenerator
	kvStorage  interfaces.KeyValueStorage
	defaults   models.AutoBlogSchedule
	cron       *cron.Cron
	validate   *validator.Validate
	logger     arbor.ILogger
	jobTimeout time.Duration

	mu       sync.Mutex // Protects schedule, entryID, running
	schedule models.AutoBlogSchedule
	entryID  cron.EntryID
	running  bool

	jobMu     sync.Mutex // Prevents overlapping runs
	lastRun   *time.Time
	lastError string
}

// NewService creates a scheduler. kvStorage may be nil, in which case schedules are not persisted.
func NewService(generator DailyGenerator, kvStorage interfaces.KeyValueStorage, config common.SchedulerConfig, logger arbor.ILogger) *Service {
	defaults := models.AutoBlogSchedule{
		Enabled:  config.Enabled,
		PostTime: config.PostTime,
		Timezone: config.Timezone,
	}
	if defaults.PostTime == "" {
		defaults.PostTime = "09:00"
	}
	if defaults.Timezone == "" {
		defaults.Timezone = "Asia/Kolkata"
	}

	return &Service{
		generator:  generator,
		kvStorage:  kvStorage,
		defaults:   defaults,
		cron:       cron.New(),
		validate:   validator.New(),
		logger:     logger,
		jobTimeout: DefaultJobTimeout,
		schedule:   defaults,
	}
}

// DefaultSchedule returns the schedule used when nothing has been persisted
func (s *Service) DefaultSchedule() models.AutoBlogSchedule {
	return s.defaults
}

// Start restores the persisted schedule (or the configured default) and starts cron
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.mu.Unlock()

	schedule := s.defaults
	if restored, err := s.loadSchedule(ctx); err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to restore blog schedule, using configured default")
		}
	} else {
		schedule = *restored
		s.logger.Info().
			Str("post_time", schedule.PostTime).
			Str("timezone", schedule.Timezone).
			Bool("enabled", schedule.Enabled).
			Msg("Restored blog schedule")
	}

	if err := s.apply(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	s.cron.Start()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Msg("Scheduler started")
	return nil
}

// Stop halts cron and waits for a running generation to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// Configure validates and persists a schedule and (re)registers the daily cron entry
func (s *Service) Configure(ctx context.Context, schedule models.AutoBlogSchedule) (*models.ScheduleStatus, error) {
	if err := s.validate.Struct(schedule); err != nil {
		return nil, err
	}

	if err := s.saveSchedule(ctx, schedule); err != nil {
		return nil, err
	}

	if err := s.apply(schedule); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("post_time", schedule.PostTime).
		Str("timezone", schedule.Timezone).
		Bool("enabled", schedule.Enabled).
		Msg("Blog schedule configured")

	return s.Status(), nil
}

// Status reports the active schedule and its next run
func (s *Service) Status() *models.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &models.ScheduleStatus{
		Enabled:  s.schedule.Enabled,
		PostTime: s.schedule.PostTime,
		Timezone: s.schedule.Timezone,
	}

	if !s.schedule.Enabled || s.entryID == 0 {
		status.Message = "Auto-schedule disabled. No blog will be generated automatically."
		return status
	}

	// Entries only carry Next once cron is running, so compute it from the schedule itself
	if entry := s.cron.Entry(s.entryID); entry.Valid() && entry.Schedule != nil {
		next := entry.Schedule.Next(time.Now())
		status.NextPost = &next
	}
	status.Message = fmt.Sprintf("Auto-schedule configured. Blog will be generated daily at %s (%s).", s.schedule.PostTime, s.schedule.Timezone)
	return status
}

// RunNow generates today's post immediately, outside the cron schedule
func (s *Service) RunNow(ctx context.Context) (*models.DailyBlog, error) {
	return s.runJob(ctx)
}

// LastRun returns the completion time and error of the last generation
func (s *Service) LastRun() (*time.Time, string) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.lastRun, s.lastError
}

// CronSpec builds the cron expression for a daily post time in a timezone
func CronSpec(postTime, timezone string) (string, error) {
	parts := strings.Split(postTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid post time %q, expected HH:MM", postTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in post time %q", postTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in post time %q", postTime)
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", timezone, minute, hour), nil
}

// apply swaps the cron entry for the given schedule
func (s *Service) apply(schedule models.AutoBlogSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var newID cron.EntryID
	if schedule.Enabled {
		spec, err := CronSpec(schedule.PostTime, schedule.Timezone)
		if err != nil {
			return err
		}
		id, err := s.cron.AddFunc(spec, s.executeJob)
		if err != nil {
			return fmt.Errorf("failed to add cron job: %w", err)
		}
		newID = id
	}

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = newID
	s.schedule = schedule
	return nil
}

// executeJob is the cron callback
func (s *Service) executeJob() {
	defer common.RecoverPanic(s.logger, "daily-blog")

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if _, err := s.runJob(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled daily blog failed")
	}
}

func (s *Service) runJob(ctx context.Context) (*models.DailyBlog, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	start := time.Now()
	s.logger.Info().Msg("Daily blog generation started")

	daily, err := s.generator.GenerateDaily(ctx, start)

	completed := time.Now()
	s.lastRun = &completed
	if err != nil {
		s.lastError = err.Error()
		return nil, err
	}
	s.lastError = ""

	s.logger.Info().
		Str("topic", daily.Topic).
		Int64("duration_ms", completed.Sub(start).Milliseconds()).
		Msg("Daily blog generation completed")

	return daily, nil
}

func (s *Service) saveSchedule(ctx context.Context, schedule models.AutoBlogSchedule) error {
	if s.kvStorage == nil {
		return nil
	}
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	if err := s.kvStorage.Set(ctx, SettingsKey, string(data), "Daily education blog schedule"); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}
	return nil
}

func (s *Service) loadSchedule(ctx context.Context) (*models.AutoBlogSchedule, error) {
	if s.kvStorage == nil {
		return nil, interfaces.ErrKeyNotFound
	}
	value, err := s.kvStorage.Get(ctx, SettingsKey)
	if err != nil {
		return nil, err
	}

	var schedule models.AutoBlogSchedule
	if err := json.Unmarshal([]byte(value), &schedule); err != nil {
		return nil, fmt.Errorf("failed to decode persisted schedule: %w", err)
	}
	if err := s.validate.Struct(schedule); err != nil {
		return nil, fmt.Errorf("persisted schedule is invalid: %w", err)
	}
	return &schedule, nil
}
