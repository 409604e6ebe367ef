package scraper

import (
	"strconv"
	"strings"

	"price-tracker/internal/models"
)

// ParsePrice extracts a numeric price from a display string. All
// non-numeric characters are stripped; a trailing dot followed by one or
// two digits is kept as a decimal separator, any other dot is treated as a
// thousands separator ("$1.234" is 1234 pesos, "1,234.00" is 1234).
// A value that is empty, unparseable or zero yields nil, never zero.
func ParsePrice(raw string) *float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	// Keep the last dot only when it reads as a decimal separator.
	if i := strings.LastIndex(cleaned, "."); i >= 0 {
		decimals := cleaned[i+1:]
		intPart := strings.ReplaceAll(cleaned[:i], ".", "")
		if len(decimals) >= 1 && len(decimals) <= 2 {
			cleaned = intPart + "." + decimals
		} else {
			cleaned = intPart + strings.ReplaceAll(decimals, ".", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value == 0 {
		return nil
	}
	return &value
}

// numeric converts a decoded JSON value into a price. Upstream APIs are
// inconsistent about whether prices arrive as numbers or formatted
// strings. Zero is treated as absent.
func numeric(v interface{}) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if val == 0 {
			return nil
		}
		return &val
	case string:
		return ParsePrice(val)
	default:
		return nil
	}
}

// Normalize applies the deployment-wide normalization rules to a raw
// observation: the fixed currency, the exactly-one-of price/error
// invariant, and suppression of an original price that equals the current
// price (no actual discount).
func Normalize(obs models.PriceObservation) models.PriceObservation {
	if obs.Currency == "" {
		obs.Currency = models.DefaultCurrency
	}
	if obs.Price != nil {
		obs.Error = ""
		if obs.OriginalPrice != nil && *obs.OriginalPrice == *obs.Price {
			obs.OriginalPrice = nil
		}
	}
	return obs
}
