package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ozon-monitor/internal/database"
	"ozon-monitor/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrRunInProgress is returned when a run is requested while another
// one is still executing. Requests are dropped, never queued.
var ErrRunInProgress = errors.New("a run is already in progress")

// SchedulerService fires the ingest-and-report sequence at the
// configured times of day. At most one run executes at a time; a
// trigger that lands during a run is skipped.
type SchedulerService struct {
	db     *gorm.DB
	prices *PriceService

	mu      sync.Mutex // guards cron swap on restart
	cron    *cron.Cron
	running atomic.Bool

	onTask func(models.Task) // optional status listener

	log *logrus.Entry
}

func NewSchedulerService(db *gorm.DB, prices *PriceService) *SchedulerService {
	return &SchedulerService{
		db:     db,
		prices: prices,
		log:    logrus.WithField("component", "scheduler"),
	}
}

// SetTaskListener registers a callback invoked on every task status
// transition. Must be called before the scheduler starts firing.
func (s *SchedulerService) SetTaskListener(fn func(models.Task)) {
	s.onTask = fn
}

// Restart reloads the scheduled times from the parameter store and
// re-registers the triggers.
func (s *SchedulerService) Restart() error {
	times, err := database.GetScheduledTimes(s.db)
	if err != nil {
		return err
	}
	return s.RestartWith(times)
}

// RestartWith replaces all triggers with one per distinct "HH:MM"
// value. A malformed time fails the whole restart before anything is
// registered. A run already executing is not interrupted; the old cron
// just stops producing further firings.
func (s *SchedulerService) RestartWith(times []string) error {
	specs := make([]string, 0, len(times))
	seen := make(map[string]struct{}, len(times))
	for _, value := range times {
		hour, minute, err := parseClock(value)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%02d:%02d", hour, minute)
		if _, dup := seen[key]; dup {
			s.log.WithField("time", value).Warn("duplicate scheduled time ignored")
			continue
		}
		seen[key] = struct{}{}
		specs = append(specs, fmt.Sprintf("%d %d * * *", minute, hour))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.running.Store(false)

	if len(specs) == 0 {
		s.log.Info("no scheduled times configured, scheduler idle")
		return nil
	}

	c := cron.New()
	for _, spec := range specs {
		if _, err := c.AddFunc(spec, s.runScheduled); err != nil {
			return fmt.Errorf("failed to register trigger %q: %w", spec, err)
		}
	}
	c.Start()
	s.cron = c
	s.log.WithField("triggers", len(specs)).Info("scheduler restarted")
	return nil
}

// TriggerCount reports the number of registered triggers.
func (s *SchedulerService) TriggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// RunNow starts the per-company sequence for a single company outside
// the schedule. It shares the single-run guard with the cron triggers.
func (s *SchedulerService) RunNow(companyID, date string) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer s.running.Store(false)
		s.runCompany(companyID, date)
	}()
	return nil
}

// runScheduled is the trigger handler: take the guard or drop the
// firing, then work through every configured company sequentially.
func (s *SchedulerService) runScheduled() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("run already in progress, skipping this firing")
		return
	}
	defer s.running.Store(false)

	s.runAll(time.Now().Format(database.DateFormat))
}

func (s *SchedulerService) runAll(date string) {
	companyIDs, err := database.GetCompanyIDs(s.db)
	if err != nil {
		s.log.WithError(err).Error("failed to load company ids")
		return
	}
	if len(companyIDs) == 0 {
		s.log.Warn("no companies configured, nothing to do")
		return
	}
	for _, companyID := range companyIDs {
		// One company failing must not keep the rest from running.
		s.runCompany(companyID, date)
	}
}

// runCompany drives one company through the task state machine:
// getting prices -> generating report -> FINISHED, or ERROR: <msg>
// from either phase. Errors end here; the operator sees them through
// the task log.
func (s *SchedulerService) runCompany(companyID, date string) {
	task := models.Task{Name: companyID, Status: models.TaskStatusGettingPrices}
	if err := database.SaveTask(s.db, &task); err != nil {
		s.log.WithError(err).WithField("company_id", companyID).Error("failed to create task")
		return
	}
	s.notify(task)

	if err := s.prices.CollectPrices(context.Background(), companyID, date); err != nil {
		s.failTask(&task, err)
		return
	}

	task.Status = models.TaskStatusGeneratingReport
	if err := database.SaveTask(s.db, &task); err != nil {
		s.log.WithError(err).WithField("company_id", companyID).Error("failed to update task")
		return
	}
	s.notify(task)

	if _, err := s.prices.GenerateReport(date, companyID, ""); err != nil {
		s.failTask(&task, err)
		return
	}

	task.Status = models.TaskStatusFinished
	if err := database.SaveTask(s.db, &task); err != nil {
		s.log.WithError(err).WithField("company_id", companyID).Error("failed to update task")
		return
	}
	s.notify(task)
}

func (s *SchedulerService) failTask(task *models.Task, cause error) {
	s.log.WithError(cause).WithField("company_id", task.Name).Error("run failed for company")
	task.Status = "ERROR: " + cause.Error()
	if err := database.SaveTask(s.db, task); err != nil {
		s.log.WithError(err).WithField("company_id", task.Name).Error("failed to record task error")
		return
	}
	s.notify(*task)
}

func (s *SchedulerService) notify(task models.Task) {
	if s.onTask != nil {
		s.onTask(task)
	}
}

// ValidateClock rejects anything that is not an "HH:MM" time of day.
// Callers storing new scheduled times check before writing so a bad
// value never reaches the trigger registration.
func ValidateClock(value string) error {
	_, _, err := parseClock(value)
	return err
}

// parseClock validates an "HH:MM" time-of-day string.
func parseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid scheduled time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in scheduled time %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in scheduled time %q", value)
	}
	return hour, minute, nil
}
