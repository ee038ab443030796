package gateway

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrInvalidMSISDN is returned when a destination cannot be
	// normalized to the provider's accepted form.
	ErrInvalidMSISDN = errors.New("invalid destination number")

	// ErrNoDestinations is returned for an empty destination set.
	ErrNoDestinations = errors.New("no destination numbers")

	errDeliveryTimeFormat = errors.New("invalid delivery time format")
	errDeliveryTimePast   = errors.New("delivery time is in the past")
)

var (
	nonDigitPattern = regexp.MustCompile(`\D`)
	msisdnPattern   = regexp.MustCompile(`^62\d{9,13}$`)
)

// NormalizeMSISDN canonicalizes a free-form phone number to the
// country-prefixed digit string the gateway accepts: non-digits are
// stripped, a leading 0 is replaced by 62, and a missing 62 prefix is
// prepended. The result must match 62 followed by 9 to 13 digits.
func NormalizeMSISDN(raw string) (string, error) {
	digits := nonDigitPattern.ReplaceAllString(raw, "")
	if digits == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidMSISDN, raw)
	}

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = "62" + digits[1:]
	case !strings.HasPrefix(digits, "62"):
		digits = "62" + digits
	}

	if !msisdnPattern.MatchString(digits) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMSISDN, raw)
	}

	return digits, nil
}

// NormalizeDestinations flattens a destination set into the single
// comma-joined string the gateway expects. Each element may itself be
// comma-joined. One bad number rejects the whole batch.
func NormalizeDestinations(values []string) (string, error) {
	var normalized []string

	for _, value := range values {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}

			number, err := NormalizeMSISDN(entry)
			if err != nil {
				return "", err
			}
			normalized = append(normalized, number)
		}
	}

	if len(normalized) == 0 {
		return "", ErrNoDestinations
	}

	return strings.Join(normalized, ","), nil
}

// gsm7Alphabet is the GSM 03.38 basic character set, plus LF and CR.
// The gateway rejects messages needing any other encoding on this
// channel, so membership here is checked before submission.
const gsm7Alphabet = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑܧ¿abcdefghijklmnopqrstuvwxyzäöñüà"

var gsm7Set = func() map[rune]struct{} {
	set := make(map[rune]struct{}, utf8.RuneCountInString(gsm7Alphabet))
	for _, r := range gsm7Alphabet {
		set[r] = struct{}{}
	}
	return set
}()

// IsGSM7 reports whether every character of s belongs to the GSM 7-bit
// basic alphabet. It is a pure membership check.
func IsGSM7(s string) bool {
	for _, r := range s {
		if _, ok := gsm7Set[r]; !ok {
			return false
		}
	}
	return true
}

// SegmentCount returns the number of SMS segments a message occupies
// under the standard 160/153 accounting.
func SegmentCount(message string) int {
	length := utf8.RuneCountInString(message)
	if length <= 160 {
		return 1
	}
	return (length-160+152)/153 + 1
}

const deliveryTimeLayout = "2006-01-02 15:04:05"

const (
	deliveryTimeMinuteLayout = "200601021504"
	deliveryTimeHourLayout   = "2006010215"
)

// gatewayZone is the provider's fixed UTC+7 zone. Delivery times are
// always interpreted and rendered in this zone, never the ambient
// system zone.
var gatewayZone = time.FixedZone("WIB", 7*60*60)

// convertDeliveryTime parses a "2006-01-02 15:04:05" timestamp in the
// gateway zone and renders it with the given fixed-width layout.
// Timestamps before now are rejected; the gateway cannot schedule in
// the past.
func convertDeliveryTime(value, outLayout string, now time.Time) (string, error) {
	t, err := time.ParseInLocation(deliveryTimeLayout, value, gatewayZone)
	if err != nil {
		return "", errDeliveryTimeFormat
	}

	if t.Before(now) {
		return "", errDeliveryTimePast
	}

	return t.In(gatewayZone).Format(outLayout), nil
}
