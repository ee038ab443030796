package gateway

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeMSISDN(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already canonical", "6281234567890", "6281234567890", false},
		{"leading zero", "081234567890", "6281234567890", false},
		{"bare local number", "81234567890", "6281234567890", false},
		{"formatted with punctuation", "+62 812-3456-7890", "6281234567890", false},
		{"too short", "628123", "", true},
		{"too long", "62812345678901234", "", true},
		{"no digits", "abc", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeMSISDN(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeDestinations_CommaJoinedAndList(t *testing.T) {
	got, err := NormalizeDestinations([]string{"081234567890, 6289876543210", "+62 811 111 1111"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "6281234567890,6289876543210,628111111111"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeDestinations_OneBadNumberRejectsBatch(t *testing.T) {
	if _, err := NormalizeDestinations([]string{"081234567890,123"}); err == nil {
		t.Fatalf("expected error for batch containing malformed number")
	}

	if _, err := NormalizeDestinations(nil); err == nil {
		t.Fatalf("expected error for empty destination set")
	}
}

func TestIsGSM7(t *testing.T) {
	valid := []string{
		"Hello, world! 123",
		"Line one\nline two\r",
		"Prix: 5£ @home (50%)",
		"",
	}
	for _, s := range valid {
		if !IsGSM7(s) {
			t.Errorf("expected %q to be GSM 7-bit", s)
		}
	}

	invalid := []string{
		"Unicode dash — here",
		"emoji \U0001F600",
		"curly brace {}",
		"euro € sign",
	}
	for _, s := range invalid {
		if IsGSM7(s) {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

// The checker is a pure membership test; repeated calls must agree.
func TestIsGSM7_Idempotent(t *testing.T) {
	s := "same input, same answer"
	first := IsGSM7(s)
	for i := 0; i < 10; i++ {
		if IsGSM7(s) != first {
			t.Fatalf("checker returned a different answer on call %d", i)
		}
	}
}

func TestSegmentCount(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{1, 1},
		{160, 1},
		{161, 2},
		{313, 2},
		{314, 3},
		{320, 3},
		{400, 3},
	}

	for _, tc := range cases {
		msg := strings.Repeat("a", tc.length)
		if got := SegmentCount(msg); got != tc.want {
			t.Errorf("length %d: expected %d segments, got %d", tc.length, tc.want, got)
		}
	}
}

func TestConvertDeliveryTime(t *testing.T) {
	// Fixed reference instant: 2026-03-01 10:00:00 UTC+7.
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, gatewayZone)

	got, err := convertDeliveryTime("2026-03-02 08:30:00", deliveryTimeMinuteLayout, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "202603020830" {
		t.Fatalf("expected 202603020830, got %q", got)
	}

	got, err = convertDeliveryTime("2026-03-02 08:30:00", deliveryTimeHourLayout, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2026030208" {
		t.Fatalf("expected 2026030208, got %q", got)
	}
}

func TestConvertDeliveryTime_Rejections(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, gatewayZone)

	if _, err := convertDeliveryTime("02-03-2026 08:30", deliveryTimeMinuteLayout, now); err != errDeliveryTimeFormat {
		t.Fatalf("expected format error, got %v", err)
	}

	if _, err := convertDeliveryTime("2026-02-28 23:59:00", deliveryTimeMinuteLayout, now); err != errDeliveryTimePast {
		t.Fatalf("expected past error, got %v", err)
	}
}

// The conversion must not depend on the ambient process timezone.
func TestConvertDeliveryTime_IgnoresAmbientZone(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) // 07:00 in UTC+7

	// 06:00 UTC+7 is before 07:00 UTC+7 even though it is "later"
	// than 00:00 UTC on the clock face.
	if _, err := convertDeliveryTime("2026-03-01 06:00:00", deliveryTimeMinuteLayout, now); err != errDeliveryTimePast {
		t.Fatalf("expected past error, got %v", err)
	}

	got, err := convertDeliveryTime("2026-03-01 08:00:00", deliveryTimeMinuteLayout, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "202603010800" {
		t.Fatalf("expected 202603010800, got %q", got)
	}
}
