package services

import (
	"regexp"
	"strings"
)

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

const gstinAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NormalizeGSTIN uppercases and trims; it does not validate.
func NormalizeGSTIN(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidGSTIN checks the 15-character shape and the mod-36 check digit, so
// malformed input never reaches the lookup vendor.
func ValidGSTIN(raw string) bool {
	gstin := NormalizeGSTIN(raw)
	if !gstinPattern.MatchString(gstin) {
		return false
	}
	return gstinChecksum(gstin[:14]) == gstin[14]
}

// gstinChecksum computes the check character over the first 14 characters
// using the GSTN Luhn mod-36 variant: factors alternate 1 and 2, each product
// contributes its base-36 digit sum.
func gstinChecksum(body string) byte {
	sum := 0
	factor := 1
	for i := 0; i < len(body); i++ {
		value := strings.IndexByte(gstinAlphabet, body[i])
		if value < 0 {
			return 0
		}
		product := value * factor
		sum += product/36 + product%36
		if factor == 1 {
			factor = 2
		} else {
			factor = 1
		}
	}
	return gstinAlphabet[(36-sum%36)%36]
}
