package extractor

import (
	"regexp"
	"strings"
)

// Canonical field names the normalizer knows format rules for. Fields not
// listed here only get whitespace cleanup.
const (
	fieldPhone      = "phone"
	fieldAddress    = "address"
	fieldPriceRange = "price_range"
	fieldEmail      = "email"
	fieldHours      = "hours"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonDigitRe     = regexp.MustCompile(`[^\d]`)
	streetSuffixRe = regexp.MustCompile(`(?i)\b(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|pl|place|ct|court|sq|square)\b`)
	houseNumberRe  = regexp.MustCompile(`\b\d{1,6}\b`)
	emailRe        = regexp.MustCompile(`^[\w.+-]+@[\w-]+\.[\w.-]+$`)
	dayRe          = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)`)
	clockRe        = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s*(am|pm|-|–)`)
)

// NormalizeValue converts an extracted raw value into its canonical form.
// Normalization happens inside the extraction engine, before the value
// leaves it, so downstream consumers always see canonical forms.
func NormalizeValue(field, value string) string {
	value = collapseWhitespace(value)

	switch field {
	case fieldPhone:
		return normalizePhone(value)
	case fieldAddress:
		return normalizeAddress(value)
	case fieldPriceRange:
		return normalizePriceRange(value)
	case fieldEmail:
		return strings.ToLower(strings.TrimPrefix(value, "mailto:"))
	default:
		return value
	}
}

// CompletenessBonus scores how fully formed a value is for its field.
// A complete phone or address pattern scores higher than a partial match.
func CompletenessBonus(field, value string) float64 {
	switch field {
	case fieldPhone:
		digits := nonDigitRe.ReplaceAllString(value, "")
		if len(digits) >= 10 {
			return 0.1
		}
		if len(digits) >= 7 {
			return 0.05
		}
	case fieldAddress:
		hasNumber := houseNumberRe.MatchString(value)
		hasSuffix := streetSuffixRe.MatchString(value)
		if hasNumber && hasSuffix {
			return 0.1
		}
		if hasSuffix {
			return 0.05
		}
	case fieldEmail:
		if emailRe.MatchString(value) {
			return 0.1
		}
	case fieldHours:
		if dayRe.MatchString(value) && clockRe.MatchString(value) {
			return 0.05
		}
	}
	return 0
}

// scoreConfidence combines a strategy's base confidence with the value's
// completeness bonus, capped at 1.0.
func scoreConfidence(base float64, field, value string) float64 {
	confidence := base + CompletenessBonus(field, value)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func collapseWhitespace(value string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " "))
}

// normalizePhone renders phone numbers in a canonical dashed/parenthesized
// form based on digit count. Unrecognized shapes pass through cleaned.
func normalizePhone(value string) string {
	hasCountry := strings.HasPrefix(strings.TrimSpace(value), "+")
	digits := nonDigitRe.ReplaceAllString(value, "")

	switch {
	case len(digits) == 7:
		return digits[:3] + "-" + digits[3:]
	case len(digits) == 10:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+1 (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:]
	case hasCountry && len(digits) > 7:
		return "+" + digits
	default:
		return value
	}
}

// normalizeAddress tidies separators; component ordering is preserved.
func normalizeAddress(value string) string {
	value = strings.ReplaceAll(value, " ,", ",")
	parts := strings.Split(value, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, ", ")
}

// normalizePriceRange maps price descriptions onto the $..$$$$ scale where
// possible.
func normalizePriceRange(value string) string {
	trimmed := strings.TrimSpace(value)
	if regexp.MustCompile(`^\$+$`).MatchString(trimmed) {
		return trimmed
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "very expensive") || strings.Contains(lower, "fine dining"):
		return "$$$$"
	case strings.Contains(lower, "expensive") || strings.Contains(lower, "upscale"):
		return "$$$"
	case strings.Contains(lower, "moderate") || strings.Contains(lower, "mid-range"):
		return "$$"
	case strings.Contains(lower, "cheap") || strings.Contains(lower, "inexpensive") || strings.Contains(lower, "budget"):
		return "$"
	default:
		return trimmed
	}
}

// normalizeListItem canonicalizes a list entry for dedup-friendly output.
func normalizeListItem(value string) string {
	return collapseWhitespace(value)
}
