package model

import (
	"testing"
	"time"
)

func TestResourceKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  ResourceKey
		want string
	}{
		{"product", ProductKey("P1"), "product:P1"},
		{"room type", RoomTypeKey("H1", "deluxe"), "roomtype:H1:deluxe"},
		{
			"night",
			NightKey("H1", "deluxe", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)),
			"night:H1:deluxe:2026-12-01",
		},
		{
			"night normalizes to UTC date",
			NightKey("H1", "deluxe", time.Date(2026, 12, 1, 23, 30, 0, 0, time.FixedZone("X", -2*3600))),
			"night:H1:deluxe:2026-12-02",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseResourceKey_RoundTrip(t *testing.T) {
	keys := []ResourceKey{
		ProductKey("P1"),
		RoomTypeKey("H1", "deluxe"),
		NightKey("H1", "deluxe", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)),
	}

	for _, key := range keys {
		parsed, err := ParseResourceKey(key.String())
		if err != nil {
			t.Fatalf("ParseResourceKey(%q): %v", key.String(), err)
		}
		if parsed != key {
			t.Errorf("round trip of %q changed key: %+v", key.String(), parsed)
		}
	}
}

func TestParseResourceKey_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"banana",
		"product:",
		"roomtype:H1",
		"roomtype::deluxe",
		"night:H1:deluxe",
		"night:H1:deluxe:not-a-date",
		"night:H1:deluxe:2026-13-45",
	}

	for _, input := range inputs {
		if _, err := ParseResourceKey(input); err == nil {
			t.Errorf("ParseResourceKey(%q): expected error", input)
		}
	}
}

func TestNightKeysForStay(t *testing.T) {
	checkIn := time.Date(2026, 12, 1, 15, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 12, 4, 11, 0, 0, 0, time.UTC)

	keys := NightKeysForStay("H1", "deluxe", checkIn, checkOut)
	want := []string{
		"night:H1:deluxe:2026-12-01",
		"night:H1:deluxe:2026-12-02",
		"night:H1:deluxe:2026-12-03",
	}

	if len(keys) != len(want) {
		t.Fatalf("expected %d nights, got %d", len(want), len(keys))
	}
	for i, key := range keys {
		if key.String() != want[i] {
			t.Errorf("night %d: got %q, want %q", i, key.String(), want[i])
		}
	}
}

func TestNightKeysForStay_EmptyRange(t *testing.T) {
	day := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	if keys := NightKeysForStay("H1", "deluxe", day, day); len(keys) != 0 {
		t.Errorf("same-day range: expected no nights, got %d", len(keys))
	}
	if keys := NightKeysForStay("H1", "deluxe", day.AddDate(0, 0, 3), day); len(keys) != 0 {
		t.Errorf("inverted range: expected no nights, got %d", len(keys))
	}
}

func TestResourceKey_TemplateKey(t *testing.T) {
	night := NightKey("H1", "deluxe", time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC))
	if got := night.TemplateKey().String(); got != "roomtype:H1:deluxe" {
		t.Errorf("TemplateKey() = %q, want roomtype:H1:deluxe", got)
	}
}
