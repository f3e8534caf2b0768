package access

import (
	"context"
	"time"
)

// DefaultTickInterval - период обновления обратного отсчета.
const DefaultTickInterval = time.Second

// Clock возвращает текущее время. В тестах подменяется.
type Clock func() time.Time

// Watch периодически пересчитывает решение для unlockAt и передает его в fn.
// Первое решение отдается сразу. Цикл завершается при отмене ctx или после
// отправки терминального решения (sealed или expired), так что таймер
// принадлежит вызывающему и не переживает его.
func Watch(ctx context.Context, unlockAt *time.Time, clock Clock, interval time.Duration, fn func(Decision)) {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	d := Evaluate(unlockAt, clock())
	fn(d)
	if d.Terminal() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d = Evaluate(unlockAt, clock())
			fn(d)
			if d.Terminal() {
				return
			}
		}
	}
}
