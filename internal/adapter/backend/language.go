package backend

import "strings"

// autoDetect asks the backend to detect the source language.
const autoDetect = "auto"

// NormalizeLanguageCode converts a short language code to the regional form
// the speech and translation backend expects: "hi" becomes "hi-IN". Codes
// that already carry a region, and "auto", are returned unchanged.
func NormalizeLanguageCode(code string) string {
	if strings.Contains(code, "-") || code == autoDetect {
		return code
	}
	return code + "-IN"
}
