package parking

import (
	"regexp"
	"strings"
)

// Two letters, two digits, one or two letters, four digits: KA05MH1234.
var platePattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{1,2}[0-9]{4}$`)

func ValidPlate(vehicleNumber string) bool {
	return platePattern.MatchString(vehicleNumber)
}

// NormalizePlate trims surrounding whitespace. Case is kept: lowercase
// input is rejected rather than silently upper-cased.
func NormalizePlate(vehicleNumber string) string {
	return strings.TrimSpace(vehicleNumber)
}
