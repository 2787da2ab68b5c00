package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Person is one DJ, host, or sponsor entry on a flyer order. Only the name
// and an absolute image URL survive into the JSON-safe representation;
// data-URL and temp-file references are carried via LineItem.TempFiles
// instead.
type Person struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// PersonList is the canonical representation of people fields that arrive
// from call sites as a single object, an array, or a wrapped {name} value.
// It is always constructed through CoercePersons, never branched on ad hoc.
type PersonList []Person

// CoercePersons normalizes a raw decoded JSON value into a PersonList.
// Accepted shapes: nil, a single object, or an array of objects. Unknown
// entry shapes are skipped rather than failing the whole item.
func CoercePersons(v any) PersonList {
	switch t := v.(type) {
	case nil:
		return PersonList{}
	case []any:
		out := make(PersonList, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, coercePerson(m))
			}
		}
		return out
	case map[string]any:
		return PersonList{coercePerson(t)}
	default:
		return PersonList{}
	}
}

func coercePerson(m map[string]any) Person {
	p := Person{Name: stringValue(m["name"])}

	img := stringValue(m["image_url"])
	if img == "" {
		img = stringValue(m["image"])
	}
	if IsAbsoluteURL(img) {
		p.ImageURL = img
	}
	return p
}

// First returns the first entry, or a zero Person for an empty list.
func (l PersonList) First() Person {
	if len(l) == 0 {
		return Person{}
	}
	return l[0]
}

// IsAbsoluteURL reports whether ref is an absolute HTTP(S) reference that an
// external consumer (payment UI, order backend) can resolve on its own.
func IsAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// LineItem is the canonical order request: every order-creation submission
// conforms to this shape regardless of the shape of the data that produced it.
// A LineItem is owned by the checkout request that created it and is immutable
// once submitted.
type LineItem struct {
	FlyerID    string
	CategoryID string
	UserID     string
	Email      string

	Presenting   string
	EventTitle   string
	EventDate    string
	FlyerInfo    string
	AddressPhone string

	DJs      PersonList
	Host     PersonList
	Sponsors PersonList

	StorySizeVersion  bool
	CustomFlyer       bool
	AnimatedFlyer     bool
	InstagramPostSize bool

	DeliveryTime string
	CustomNotes  string

	TotalPrice decimal.Decimal
	Subtotal   decimal.Decimal

	ImageURL     string
	VenueText    string
	VenueLogoURL string

	// TempFiles maps logical field names (e.g. "host_0", "sponsor_1") to
	// staged temp-file paths collected during form filling.
	TempFiles map[string]string
}

// Amount is the monetary value charged for this item: the subtotal when one
// was supplied, otherwise the total price. Always non-negative.
func (i LineItem) Amount() decimal.Decimal {
	if i.Subtotal.IsPositive() {
		return i.Subtotal
	}
	return i.TotalPrice
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
