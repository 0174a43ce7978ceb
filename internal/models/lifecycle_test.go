package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(active, inactive int, action DispositionAction) *RetentionSnapshot {
	return &RetentionSnapshot{ActiveYears: active, InactiveYears: inactive, Action: action}
}

func TestDeriveLifecycleStatusThreeSevenSchedule(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s := snapshot(3, 7, DispositionArchive)

	cases := []struct {
		name     string
		ageYears int
		want     LifecycleStatus
	}{
		{"two years old", 2, LifecycleActive},
		{"four years old", 4, LifecycleInactive},
		{"eleven years old", 11, LifecycleReadyForDisposition},
		{"exactly at active end", 3, LifecycleInactive},
		{"exactly at inactive end", 10, LifecycleReadyForDisposition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			createdAt := now.AddDate(-tc.ageYears, 0, 0)
			assert.Equal(t, tc.want, DeriveLifecycleStatus(createdAt, s, nil, now))
		})
	}
}

func TestDeriveLifecycleStatusZeroActiveNeverActive(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := snapshot(0, 2, DispositionDestroy)

	for _, offset := range []time.Duration{0, time.Nanosecond, time.Hour, 24 * time.Hour * 365} {
		assert.NotEqual(t, LifecycleActive, DeriveLifecycleStatus(createdAt, s, nil, createdAt.Add(offset)))
	}
	assert.Equal(t, LifecycleInactive, DeriveLifecycleStatus(createdAt, s, nil, createdAt))
	assert.Equal(t, LifecycleReadyForDisposition, DeriveLifecycleStatus(createdAt, snapshot(0, 0, DispositionArchive), nil, createdAt))
}

func TestDeriveLifecycleStatusTerminalIsSticky(t *testing.T) {
	createdAt := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	archived := DispositionStatusArchived
	destroyed := DispositionStatusDestroyed
	s := snapshot(50, 50, DispositionArchive)

	for _, years := range []int{0, 1, 10, 200} {
		now := createdAt.AddDate(years, 0, 0)
		assert.Equal(t, LifecycleArchived, DeriveLifecycleStatus(createdAt, s, &archived, now))
		assert.Equal(t, LifecycleDestroyed, DeriveLifecycleStatus(createdAt, s, &destroyed, now))
	}
}

func TestDeriveLifecycleStatusWithoutSnapshot(t *testing.T) {
	now := time.Now()
	assert.Equal(t, LifecycleActive, DeriveLifecycleStatus(now.AddDate(-30, 0, 0), nil, nil, now))
}

func TestAddYearsClampsLeapDay(t *testing.T) {
	leap := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), addYears(leap, 1))
	assert.Equal(t, time.Date(2028, 2, 29, 10, 0, 0, 0, time.UTC), addYears(leap, 4))
	assert.Equal(t, leap, addYears(leap, 0))
}

func TestParseLifecycleStatus(t *testing.T) {
	status, err := ParseLifecycleStatus("readyfordisposition")
	require.NoError(t, err)
	assert.Equal(t, LifecycleReadyForDisposition, status)

	_, err = ParseLifecycleStatus("expired")
	assert.Error(t, err)
}

func TestDocumentSnapshotRequiresAllFields(t *testing.T) {
	doc := Document{CreatedAt: time.Now()}
	assert.Nil(t, doc.Snapshot())

	doc.ApplySnapshot(RetentionSnapshot{ActiveYears: 1, InactiveYears: 2, Action: DispositionDestroy})
	require.NotNil(t, doc.Snapshot())
	assert.Equal(t, DispositionDestroy, doc.Snapshot().Action)
}
