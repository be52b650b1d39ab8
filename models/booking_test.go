package models

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"19:00", TimeOfDay{19, 0}, false},
		{"07:45", TimeOfDay{7, 45}, false},
		{"24:00", TimeOfDay{}, true},
		{"7pm", TimeOfDay{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBookingOverlaps(t *testing.T) {
	day := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	b, err := NewBooking(1, day, TimeOfDay{19, 0}, 4, day)
	if err != nil {
		t.Fatalf("NewBooking: %v", err)
	}
	if got := b.DateTime(); !got.Equal(time.Date(2026, 5, 10, 19, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateTime = %v", got)
	}
	at := func(h, m int) time.Time { return time.Date(2026, 5, 10, h, m, 0, 0, time.UTC) }
	tests := []struct {
		start, end time.Time
		want       bool
	}{
		{at(17, 0), at(19, 0), false},
		{at(17, 0), at(19, 1), true},
		{at(20, 59), at(22, 0), true},
		{at(21, 0), at(22, 0), false},
	}
	for _, tt := range tests {
		if got := b.Overlaps(tt.start, tt.end, DefaultBookingDuration); got != tt.want {
			t.Errorf("Overlaps(%s, %s) = %v, want %v", tt.start.Format("15:04"), tt.end.Format("15:04"), got, tt.want)
		}
	}
}
