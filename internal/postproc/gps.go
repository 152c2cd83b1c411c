package postproc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hemisphereSuffix = regexp.MustCompile(`(?i)(?:^|[\s"'])([NSEW])$`)
	hemispherePrefix = regexp.MustCompile(`(?i)^([NSEW])\s`)
	gpsNumber        = regexp.MustCompile(`-?\d+(?:\.\d+)?(?:\s*/\s*\d+(?:\.\d+)?)?`)
)

// toDecimal converts a coordinate in degrees, minutes and seconds into signed decimal
// degrees with six fraction digits. Accepted forms:
//
//	51 deg 30' 26.40" N
//	51/1, 30/1, 2640/100
//	51,30,26.4
//	-0.1275
func toDecimal(value string) (string, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", fmt.Errorf("empty coordinate")
	}

	negative := false
	if m := hemisphereSuffix.FindStringSubmatch(s); m != nil {
		negative = isSouthOrWest(m[1])
		s = strings.TrimSpace(s[:len(s)-1])
	} else if m := hemispherePrefix.FindStringSubmatch(s); m != nil {
		negative = isSouthOrWest(m[1])
		s = strings.TrimSpace(s[1:])
	}

	tokens := gpsNumber.FindAllString(s, -1)
	if len(tokens) == 0 || len(tokens) > 3 {
		return "", fmt.Errorf("invalid coordinate %q", value)
	}

	parts := make([]float64, 0, 3)
	for _, tok := range tokens {
		v, err := parseGPSNumber(tok)
		if err != nil {
			return "", fmt.Errorf("invalid coordinate %q: %w", value, err)
		}
		parts = append(parts, v)
	}

	if parts[0] < 0 {
		negative = true
		parts[0] = -parts[0]
	}

	decimal := parts[0]
	if len(parts) > 1 {
		decimal += parts[1] / 60
	}
	if len(parts) > 2 {
		decimal += parts[2] / 3600
	}
	if negative {
		decimal = -decimal
	}
	if math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return "", fmt.Errorf("invalid coordinate %q", value)
	}

	return strconv.FormatFloat(decimal, 'f', 6, 64), nil
}

func parseGPSNumber(tok string) (float64, error) {
	num, den, isRatio := strings.Cut(tok, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, err
	}
	if !isRatio {
		return n, nil
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("zero denominator in %q", tok)
	}
	return n / d, nil
}

func isSouthOrWest(h string) bool {
	h = strings.ToUpper(h)
	return h == "S" || h == "W"
}
