// Package access вычисляет состояние доступа к альбому по времени вскрытия.
//
// Состояние никогда не хранится: оно каждый раз заново выводится из
// unlock_at и текущего времени, которое передается снаружи.
package access

import "time"

// Window - длительность окна просмотра после вскрытия альбома.
const Window = 24 * time.Hour

// Status - производное состояние доступа к альбому.
type Status string

const (
	StatusSealed   Status = "sealed"   // Альбом еще не вскрыт
	StatusUnlocked Status = "unlocked" // Идет 24-часовое окно просмотра
	StatusExpired  Status = "expired"  // Окно закрылось, доступ утерян навсегда
)

// Decision - результат проверки доступа.
// TimeRemaining заполняется только для StatusUnlocked.
type Decision struct {
	CanAccess     bool
	Status        Status
	TimeRemaining time.Duration
}

// Evaluate переводит время вскрытия альбома в решение о доступе.
// Окно закрыто слева и открыто справа: now == unlockAt - unlocked,
// now == unlockAt+Window - expired. Если часы расходятся и now < unlockAt,
// альбом считается истекшим.
func Evaluate(unlockAt *time.Time, now time.Time) Decision {
	if unlockAt == nil {
		return Decision{CanAccess: false, Status: StatusSealed}
	}

	windowEnd := unlockAt.Add(Window)
	if !now.Before(*unlockAt) && now.Before(windowEnd) {
		return Decision{
			CanAccess:     true,
			Status:        StatusUnlocked,
			TimeRemaining: windowEnd.Sub(now),
		}
	}

	return Decision{CanAccess: false, Status: StatusExpired}
}

// Terminal сообщает, что для фиксированного unlockAt решение больше не изменится
// со временем. Запечатанный альбом меняет состояние только через вскрытие.
func (d Decision) Terminal() bool {
	return d.Status != StatusUnlocked
}

// Stats - количество альбомов в каждом состоянии.
type Stats struct {
	Total    int
	Sealed   int
	Unlocked int
	Expired  int
}

// Add учитывает одно решение.
func (s *Stats) Add(d Decision) {
	s.Total++
	switch d.Status {
	case StatusSealed:
		s.Sealed++
	case StatusUnlocked:
		s.Unlocked++
	case StatusExpired:
		s.Expired++
	}
}

// Summarize сворачивает Evaluate по набору времен вскрытия за один проход.
func Summarize(unlocks []*time.Time, now time.Time) Stats {
	var s Stats
	for _, u := range unlocks {
		s.Add(Evaluate(u, now))
	}
	return s
}
