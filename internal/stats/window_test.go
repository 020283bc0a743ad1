package stats

import (
	"testing"
	"time"
)

func TestCurrentDayWindow_CoversTheCalendarDay(t *testing.T) {
	now := time.Date(2025, 10, 21, 15, 30, 45, 0, time.UTC)

	window, err := CurrentDayWindow(now, time.UTC)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}

	wantStart := time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC)

	if !window.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, window.Start)
	}
	if !window.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, window.End)
	}
}

func TestCurrentDayWindow_IsDeterministicForAnInstant(t *testing.T) {
	now := time.Date(2025, 10, 21, 23, 59, 59, 0, time.UTC)

	first, err := CurrentDayWindow(now, time.UTC)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}
	second, err := CurrentDayWindow(now, time.UTC)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}

	if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
		t.Errorf("Expected identical windows, got %+v and %+v", first, second)
	}
}

func TestCurrentDayWindow_RespectsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatalf("Failed to load location: %v", err)
	}

	// 23:30 UTC on Oct 21 is already Oct 22 in Stockholm (UTC+2).
	now := time.Date(2025, 10, 21, 23, 30, 0, 0, time.UTC)

	window, err := CurrentDayWindow(now, loc)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}

	wantStart := time.Date(2025, 10, 22, 0, 0, 0, 0, loc)
	if !window.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, window.Start)
	}
}

func TestCurrentDayWindow_ZeroTimeFails(t *testing.T) {
	if _, err := CurrentDayWindow(time.Time{}, time.UTC); err == nil {
		t.Error("Expected an error for a zero time reference")
	}
}

func TestDayWindow_ContainsIsHalfOpen(t *testing.T) {
	window, err := CurrentDayWindow(time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC), time.UTC)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}

	if !window.Contains(window.Start) {
		t.Error("Expected the window start to be included")
	}
	if window.Contains(window.End) {
		t.Error("Expected the window end (start of next day) to be excluded")
	}
	if !window.Contains(window.End.Add(-time.Second)) {
		t.Error("Expected the last second of the day to be included")
	}
	if window.Contains(window.Start.Add(-time.Second)) {
		t.Error("Expected the previous day to be excluded")
	}
}

func TestDayWindow_DateKey(t *testing.T) {
	window, err := DayWindowFor(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), time.UTC)
	if err != nil {
		t.Fatalf("Failed to resolve window: %v", err)
	}

	if window.DateKey() != "2025-03-05" {
		t.Errorf("Expected date key 2025-03-05, got %s", window.DateKey())
	}
}
