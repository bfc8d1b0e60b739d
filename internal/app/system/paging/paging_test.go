package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/stratachat/internal/app/system/apperr"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"?limit=25", 25, false},
		{"?limit=0", 0, false},
		{"?limit=-1", 0, true},
		{"?limit=ten", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ParseLimit(httptest.NewRequest("GET", "/"+tt.query, nil))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !apperr.Is(err, apperr.KindInvalid) {
				t.Errorf("expected an invalid error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBefore(t *testing.T) {
	got, err := ParseBefore(httptest.NewRequest("GET", "/", nil))
	if err != nil || !got.IsZero() {
		t.Errorf("missing: got %v, %v", got, err)
	}

	want := time.Date(2026, 3, 1, 12, 30, 0, 123000000, time.UTC)
	got, err = ParseBefore(httptest.NewRequest("GET", "/?before="+want.Format(time.RFC3339Nano), nil))
	if err != nil || !got.Equal(want) {
		t.Errorf("valid: got %v, %v", got, err)
	}

	if _, err := ParseBefore(httptest.NewRequest("GET", "/?before=yesterday", nil)); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("expected invalid for a bad timestamp, got %v", err)
	}
}

func TestParseCursor(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := "?before=" + at.Format(time.RFC3339Nano)

	got, err := ParseCursor(httptest.NewRequest("GET", "/"+q+"&beforeId=m2", nil))
	if err != nil || !got.Before.Equal(at) || got.BeforeID != "m2" {
		t.Errorf("valid: got %+v, %v", got, err)
	}

	got, err = ParseCursor(httptest.NewRequest("GET", "/", nil))
	if err != nil || !got.IsZero() {
		t.Errorf("missing: got %+v, %v", got, err)
	}

	if _, err := ParseCursor(httptest.NewRequest("GET", "/?beforeId=m2", nil)); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("expected invalid for beforeId alone, got %v", err)
	}
}

func TestCursor_Admits(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		cur  Cursor
		ts   time.Time
		id   string
		want bool
	}{
		{"zero cursor", Cursor{}, at, "m1", true},
		{"earlier", CursorAt(at, "m1"), at.Add(-time.Millisecond), "m9", true},
		{"later", CursorAt(at, "m9"), at.Add(time.Millisecond), "m1", false},
		{"same time smaller id", CursorAt(at, "m2"), at, "m1", true},
		{"same time same id", CursorAt(at, "m2"), at, "m2", false},
		{"same time larger id", CursorAt(at, "m2"), at, "m3", false},
		{"same time no id", Cursor{Before: at}, at, "m1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cur.Admits(tt.ts, tt.id); got != tt.want {
				t.Errorf("Admits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrimOldest(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	if !TrimOldest(&rows, 3) {
		t.Error("expected hasMore with a look-ahead row")
	}
	if len(rows) != 3 || rows[0] != 2 || rows[2] != 4 {
		t.Errorf("expected the newest three, got %v", rows)
	}

	rows = []int{1, 2}
	if TrimOldest(&rows, 3) {
		t.Error("expected no more rows on a short page")
	}
	if len(rows) != 2 {
		t.Errorf("expected rows untouched, got %v", rows)
	}
}

func TestReverse(t *testing.T) {
	rows := []string{"a", "b", "c"}
	Reverse(rows)
	if rows[0] != "c" || rows[2] != "a" {
		t.Errorf("Reverse() = %v", rows)
	}
}
