package core

import (
	"testing"
	"time"
)

func TestToIST(t *testing.T) {
	ts := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	ist := ToIST(ts)
	_, offset := ist.Zone()
	if offset != (5*60+30)*60 {
		t.Errorf("ToIST() offset = %d; want +5:30", offset)
	}
	if !ist.Equal(ts) {
		t.Error("ToIST() must not change the instant")
	}
}

func TestFormatIST(t *testing.T) {
	// 10:00 UTC is 3:30 pm IST
	ts := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		style string
		want  string
	}{
		{name: "short", style: StyleShort, want: "15 Mar 2024"},
		{name: "long", style: StyleLong, want: "Friday, 15 March 2024"},
		{name: "time", style: StyleTime, want: "3:30 pm"},
		{name: "datetime", style: StyleDatetime, want: "15 Mar 2024, 3:30 pm"},
		{name: "unknown style falls back to short", style: "lol", want: "15 Mar 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatIST(ts, tt.style); got != tt.want {
				t.Errorf("FormatIST() = %q; want %q", got, tt.want)
			}
		})
	}
}
