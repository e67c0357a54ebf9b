package interfaces

import (
	"context"

	"github.com/ternarybob/marketpulse/internal/models"
)

// SchedulerService runs the daily education blog on a cron schedule
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop() error
	Configure(ctx context.Context, schedule models.AutoBlogSchedule) (*models.ScheduleStatus, error)
	Status() *models.ScheduleStatus
}
