package order

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Historical field-name aliases, first-non-empty wins. These replace the
// chained inline defaults scattered across the legacy call sites; the
// priority order here is the documented contract.
var (
	flyerIDAliases   = []string{"flyer_id", "flyer_is"}
	emailAliases     = []string{"email", "userEmail", "user_email"}
	userIDAliases    = []string{"user_id", "userId", "web_user_id"}
	venueLogoAliases = []string{"venue_logo_url", "venue_logo"}
)

// Defaults supplies payload-level values used when an item does not carry its
// own identity fields.
type Defaults struct {
	UserID string
	Email  string
}

// Normalize maps one raw, loosely-typed item object into a canonical
// LineItem. Each rule is applied independently; a malformed value in one
// field never prevents later fields from being normalized. The only error
// condition is an item that is not a JSON object at all.
func Normalize(raw []byte, d Defaults) (LineItem, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return LineItem{}, errors.Wrap(err, "parse order item")
	}

	item := LineItem{
		Presenting:   stringValue(m["presenting"]),
		EventTitle:   stringValue(m["event_title"]),
		EventDate:    normalizeDate(stringValue(m["event_date"])),
		FlyerInfo:    stringValue(m["flyer_info"]),
		AddressPhone: stringValue(m["address_phone"]),
		CustomNotes:  stringValue(m["custom_notes"]),
		VenueText:    stringValue(m["venue_text"]),
		ImageURL:     stringValue(m["image_url"]),

		DJs:      CoercePersons(m["djs"]),
		Host:     CoercePersons(m["host"]),
		Sponsors: CoercePersons(m["sponsors"]),

		StorySizeVersion:  boolOr(m, "story_size_version", false),
		CustomFlyer:       boolOr(m, "custom_flyer", false),
		AnimatedFlyer:     boolOr(m, "animated_flyer", false),
		InstagramPostSize: boolOr(m, "instagram_post_size", true),

		TotalPrice: ParsePrice(m["total_price"]),
		Subtotal:   ParsePrice(m["subtotal"]),
	}

	item.FlyerID = firstNonEmpty(m, flyerIDAliases, "1")
	item.CategoryID = firstNonEmpty(m, []string{"category_id"}, "1")
	item.UserID = firstNonEmpty(m, userIDAliases, d.UserID)
	item.Email = firstNonEmpty(m, emailAliases, d.Email)
	item.VenueLogoURL = firstNonEmpty(m, venueLogoAliases, "")

	item.DeliveryTime = stringValue(m["delivery_time"])
	if item.DeliveryTime == "" {
		item.DeliveryTime = "24 hours"
	}

	if tf, ok := m["temp_files"].(map[string]any); ok && len(tf) > 0 {
		item.TempFiles = make(map[string]string, len(tf))
		for field, p := range tf {
			if path := stringValue(p); path != "" {
				item.TempFiles[field] = path
			}
		}
	}

	return item, nil
}

// ParsePrice coerces a raw price value into a non-negative decimal.
// Numbers are taken as-is, strings are stripped of everything that is not a
// digit or '.', and anything unparseable yields zero. It never fails.
func ParsePrice(v any) decimal.Decimal {
	var d decimal.Decimal
	switch t := v.(type) {
	case float64:
		d = decimal.NewFromFloat(t)
	case json.Number:
		d, _ = decimal.NewFromString(t.String())
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, t)
		if cleaned == "" {
			return decimal.Zero
		}
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// normalizeDate truncates a full timestamp to its date portion. Values
// without a 'T' separator pass through unchanged.
func normalizeDate(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// firstNonEmpty returns the first non-empty value among the aliases,
// stringifying numeric identifiers, or fallback when none is set.
func firstNonEmpty(m map[string]any, aliases []string, fallback string) string {
	for _, key := range aliases {
		if s := anyToString(m[key]); s != "" {
			return s
		}
	}
	return fallback
}

func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func boolOr(m map[string]any, key string, def bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return def
}
