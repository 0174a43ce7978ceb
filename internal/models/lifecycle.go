package models

import (
	"fmt"
	"strings"
	"time"
)

// LifecycleStatus is the derived retention phase of a document.
type LifecycleStatus string

const (
	LifecycleActive              LifecycleStatus = "Active"
	LifecycleInactive            LifecycleStatus = "Inactive"
	LifecycleReadyForDisposition LifecycleStatus = "ReadyForDisposition"
	LifecycleArchived            LifecycleStatus = "Archived"
	LifecycleDestroyed           LifecycleStatus = "Destroyed"
)

// IsTerminal reports whether the status is an executed disposition.
func (s LifecycleStatus) IsTerminal() bool {
	return s == LifecycleArchived || s == LifecycleDestroyed
}

// ParseLifecycleStatus accepts the status names case-insensitively.
func ParseLifecycleStatus(raw string) (LifecycleStatus, error) {
	for _, status := range []LifecycleStatus{
		LifecycleActive, LifecycleInactive, LifecycleReadyForDisposition, LifecycleArchived, LifecycleDestroyed,
	} {
		if strings.EqualFold(raw, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle status %q", raw)
}

// DeriveLifecycleStatus computes the phase of a document at now.
// Executed dispositions are returned unchanged. Documents without a snapshot stay Active.
func DeriveLifecycleStatus(createdAt time.Time, snapshot *RetentionSnapshot, explicit *DispositionStatus, now time.Time) LifecycleStatus {
	if explicit != nil {
		switch *explicit {
		case DispositionStatusArchived:
			return LifecycleArchived
		case DispositionStatusDestroyed:
			return LifecycleDestroyed
		}
	}
	if snapshot == nil {
		return LifecycleActive
	}

	activeEndsAt := addYears(createdAt, snapshot.ActiveYears)
	inactiveEndsAt := addYears(activeEndsAt, snapshot.InactiveYears)
	switch {
	case now.Before(activeEndsAt):
		return LifecycleActive
	case now.Before(inactiveEndsAt):
		return LifecycleInactive
	default:
		return LifecycleReadyForDisposition
	}
}

// addYears matches PostgreSQL interval arithmetic: Feb 29 plus one year is Feb 28.
func addYears(t time.Time, years int) time.Time {
	if years == 0 {
		return t
	}
	year, month, day := t.Date()
	target := time.Date(year+years, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), month, t.Location()); day > last {
		day = last
	}
	return target.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
