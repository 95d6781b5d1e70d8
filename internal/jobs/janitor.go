package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"example.com/fintant/backend/internal/metrics"
)

const (
	janitorJob     = "janitor"
	janitorTimeout = 30 * time.Second
)

// SessionPurger удаляет истекшие сессии процесса.
type SessionPurger interface {
	PurgeExpired(now time.Time) int
}

// TokenPurger удаляет истекшие refresh-токены.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Report struct {
	Sessions int
	Tokens   int64
}

// Janitor по расписанию чистит истекшие сессии и refresh-токены.
type Janitor struct {
	cron     *cron.Cron
	sessions SessionPurger
	tokens   TokenPurger
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewJanitor создает задачу очистки по cron-выражению.
func NewJanitor(spec string, sessions SessionPurger, tokens TokenPurger, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	j := &Janitor{
		cron:     cron.New(),
		sessions: sessions,
		tokens:   tokens,
		logger:   logger.With(slog.String("job", janitorJob)),
		now:      time.Now,
	}

	if _, err := j.cron.AddFunc(spec, j.tick); err != nil {
		return nil, fmt.Errorf("schedule janitor %q: %w", spec, err)
	}

	return j, nil
}

// Start запускает планировщик в фоне.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started")
}

// Stop останавливает планировщик и ждет завершения текущего прогона.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("janitor stop timed out")
	}
}

func (j *Janitor) tick() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.logger.Warn("previous janitor run still in progress, skipping")
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), janitorTimeout)
	defer cancel()

	_, _ = j.RunOnce(ctx)
}

// RunOnce выполняет один прогон очистки.
func (j *Janitor) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	now := j.now()
	report := Report{}

	if j.sessions != nil {
		report.Sessions = j.sessions.PurgeExpired(now)
	}

	if j.tokens != nil {
		deleted, err := j.tokens.DeleteExpired(ctx, now)
		if err != nil {
			metrics.RecordJobRun(janitorJob, time.Since(start), false)
			j.logger.ErrorContext(ctx, "failed to delete expired refresh tokens", slog.String("error", err.Error()))
			return report, err
		}
		report.Tokens = deleted
	}

	metrics.RecordJobRun(janitorJob, time.Since(start), true)
	j.logger.InfoContext(ctx, "janitor run completed",
		slog.Int("sessions_purged", report.Sessions),
		slog.Int64("tokens_deleted", report.Tokens),
	)
	return report, nil
}
