// Package barcode implements the slot label codec and the scan classifier.
//
// A location barcode is exactly "000" + 2-digit zone + 2-digit level, all
// ASCII digits, fixed length 7. Label printing relies on this byte format, so
// it must stay bit-exact.
package barcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	locationPrefix = "000"
	locationLength = 7
)

var (
	// ErrInvalidLabel means the label does not match <letters><digits> or
	// uses an unknown zone.
	ErrInvalidLabel = errors.New("invalid slot label")
	// ErrNotLocation means the scanned string is not a location barcode.
	ErrNotLocation = errors.New("not a location barcode")
)

// Zones 27-30 are the reserved two-letter zones; 1-26 map to A-Z.
var reservedZones = map[int]string{
	27: "DD",
	28: "II",
	29: "JJ",
	30: "KK",
}

// IsLocation reports whether a scanned string is a location barcode:
// 7 characters, all digits, "000" prefix.
func IsLocation(code string) bool {
	if len(code) != locationLength || !strings.HasPrefix(code, locationPrefix) {
		return false
	}
	return isDigits(code)
}

// Decode converts a location barcode into its printable slot label,
// e.g. "0000101" -> "A1", "0002703" -> "DD3".
func Decode(code string) (string, error) {
	if !IsLocation(code) {
		return "", ErrNotLocation
	}

	zone, _ := strconv.Atoi(code[3:5])
	level, _ := strconv.Atoi(code[5:7])

	letters, ok := reservedZones[zone]
	if !ok {
		if zone < 1 || zone > 26 {
			return "", fmt.Errorf("%w: zone %d out of range", ErrNotLocation, zone)
		}
		letters = string(rune('A' + zone - 1))
	}

	return fmt.Sprintf("%s%d", letters, level), nil
}

// Encode is the exact inverse of Decode: "A1" -> "0000101".
// Labels must be canonical <letters><digits> with no leading zero in the
// digit part, so that Decode(Encode(label)) == label.
func Encode(label string) (string, error) {
	label = strings.ToUpper(strings.TrimSpace(label))

	split := 0
	for split < len(label) && label[split] >= 'A' && label[split] <= 'Z' {
		split++
	}
	letters, digits := label[:split], label[split:]
	if letters == "" || digits == "" || !isDigits(digits) {
		return "", ErrInvalidLabel
	}
	if len(digits) > 1 && digits[0] == '0' {
		return "", fmt.Errorf("%w: leading zero in level", ErrInvalidLabel)
	}

	level, _ := strconv.Atoi(digits)
	if level > 99 {
		return "", fmt.Errorf("%w: level %d out of range", ErrInvalidLabel, level)
	}

	zone := 0
	switch {
	case len(letters) == 1:
		zone = int(letters[0]-'A') + 1
	default:
		for z, pair := range reservedZones {
			if pair == letters {
				zone = z
				break
			}
		}
	}
	if zone == 0 {
		return "", fmt.Errorf("%w: unknown zone %q", ErrInvalidLabel, letters)
	}

	return fmt.Sprintf("%s%02d%02d", locationPrefix, zone, level), nil
}

// ScanKind classifies raw scanner input.
type ScanKind int

const (
	// ScanLocation is a 7-digit "000"-prefixed slot barcode.
	ScanLocation ScanKind = iota
	// ScanNumeric is any other all-digit string: tried as a unit barcode
	// first, then as a raw catalog code.
	ScanNumeric
	// ScanText is everything else, treated as a free-text name lookup.
	ScanText
)

// Classify applies the scan input contract: location pattern first, then
// purely numeric, then free text.
func Classify(input string) ScanKind {
	input = strings.TrimSpace(input)
	switch {
	case IsLocation(input):
		return ScanLocation
	case input != "" && isDigits(input):
		return ScanNumeric
	default:
		return ScanText
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
