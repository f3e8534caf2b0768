// Package census периодически пересчитывает, сколько альбомов находится в каждом
// состоянии доступа, и публикует результат в метриках.
package census

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/maynagashev/timelock/internal/access"
	"github.com/maynagashev/timelock/server/internal/metrics"
	"go.uber.org/zap"
)

// DefaultCron - расписание по умолчанию: каждые 5 минут.
const DefaultCron = "*/5 * * * *"

// retryDelay - пауза перед повтором, если не удалось вычислить следующий запуск.
const retryDelay = 30 * time.Second

// UnlockTimeSource отдает unlock_at всех альбомов. Его реализует repository.AlbumRepository.
type UnlockTimeSource interface {
	ListUnlockTimes(ctx context.Context) ([]*time.Time, error)
}

// Census - планировщик переписи альбомов.
type Census struct {
	source UnlockTimeSource
	cron   string
	clock  access.Clock
}

// New проверяет выражение cron и создает планировщик.
// Пустое выражение заменяется на DefaultCron.
func New(source UnlockTimeSource, cronExpr string, clock access.Clock) (*Census, error) {
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("некорректное расписание переписи: %q", cronExpr)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Census{source: source, cron: cronExpr, clock: clock}, nil
}

// RunOnce считает альбомы по состояниям на текущий момент и обновляет метрики.
func (c *Census) RunOnce(ctx context.Context) (access.Stats, error) {
	unlocks, err := c.source.ListUnlockTimes(ctx)
	if err != nil {
		return access.Stats{}, fmt.Errorf("ошибка получения времени вскрытия альбомов: %w", err)
	}
	stats := access.Summarize(unlocks, c.clock())
	metrics.SetAlbumStates(stats)
	return stats, nil
}

// NextRun возвращает время следующего запуска строго после after.
func (c *Census) NextRun(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(c.cron, after, false)
}

// Run выполняет перепись сразу, а затем по расписанию, пока не отменен ctx.
func (c *Census) Run(ctx context.Context) {
	zap.S().Infof("[Census] Перепись альбомов запущена, расписание '%s'", c.cron)
	c.runLogged(ctx)

	for {
		wait := retryDelay
		now := c.clock().UTC()
		next, err := c.NextRun(now)
		if err != nil {
			zap.S().Errorf("[Census] Ошибка вычисления следующего запуска: %v", err)
		} else {
			wait = next.Sub(now)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			zap.S().Info("[Census] Перепись альбомов остановлена")
			return
		case <-timer.C:
			if err == nil {
				c.runLogged(ctx)
			}
		}
	}
}

func (c *Census) runLogged(ctx context.Context) {
	stats, err := c.RunOnce(ctx)
	if err != nil {
		zap.S().Errorf("[Census] %v", err)
		return
	}
	zap.S().Debugf("[Census] Всего %d: запечатано %d, открыто %d, истекло %d",
		stats.Total, stats.Sealed, stats.Unlocked, stats.Expired)
}
