package patient

import "time"

// egnWeights are the checksum weights for the ten-digit national identifier.
var egnWeights = [9]int{2, 4, 8, 5, 10, 9, 7, 3, 6}

// ValidateEGN checks the ten-digit national identifier: digits only, a valid
// embedded birth date (month offset +20 encodes the 1800s, +40 the 2000s),
// and the mod-11 checksum in the last digit.
func ValidateEGN(egn string) error {
	if len(egn) != 10 {
		return ErrInvalidEGN
	}

	var digits [10]int
	for i, r := range egn {
		if r < '0' || r > '9' {
			return ErrInvalidEGN
		}
		digits[i] = int(r - '0')
	}

	year := digits[0]*10 + digits[1]
	month := digits[2]*10 + digits[3]
	day := digits[4]*10 + digits[5]

	switch {
	case month >= 41 && month <= 52:
		year += 2000
		month -= 40
	case month >= 21 && month <= 32:
		year += 1800
		month -= 20
	case month >= 1 && month <= 12:
		year += 1900
	default:
		return ErrInvalidEGN
	}

	born := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if born.Year() != year || born.Month() != time.Month(month) || born.Day() != day {
		return ErrInvalidEGN
	}

	sum := 0
	for i, w := range egnWeights {
		sum += digits[i] * w
	}
	check := sum % 11
	if check == 10 {
		check = 0
	}
	if check != digits[9] {
		return ErrInvalidEGN
	}

	return nil
}
