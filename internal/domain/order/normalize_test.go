package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"currency string", "$1,234.50", "1234.5"},
		{"empty string", "", "0"},
		{"number", float64(40), "40"},
		{"garbage", "free!!", "0"},
		{"plain string", "19.99", "19.99"},
		{"negative number", float64(-5), "0"},
		{"nil", nil, "0"},
		{"bool", true, "0"},
		{"multiple dots", "1.2.3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.in)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got),
				"ParsePrice(%v) = %s, want %s", tt.in, got, tt.want)
		})
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	raw := []byte(`{
		"flyer_is": 7,
		"user_email": "legacy@example.com",
		"web_user_id": "u-web",
		"venue_logo": "https://cdn.example.com/logo.png"
	}`)

	item, err := Normalize(raw, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, "7", item.FlyerID)
	assert.Equal(t, "legacy@example.com", item.Email)
	assert.Equal(t, "u-web", item.UserID)
	assert.Equal(t, "https://cdn.example.com/logo.png", item.VenueLogoURL)
}

func TestNormalize_PrimaryAliasWins(t *testing.T) {
	raw := []byte(`{"flyer_id": "42", "flyer_is": "7", "email": "a@b.c", "userEmail": "x@y.z"}`)

	item, err := Normalize(raw, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, "42", item.FlyerID)
	assert.Equal(t, "a@b.c", item.Email)
}

func TestNormalize_Defaults(t *testing.T) {
	item, err := Normalize([]byte(`{}`), Defaults{UserID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "u1", item.UserID)
	assert.Equal(t, "u1@example.com", item.Email)
	assert.Equal(t, "1", item.FlyerID)
	assert.Equal(t, "1", item.CategoryID)
	assert.Equal(t, "24 hours", item.DeliveryTime)

	// Add-on flag defaults: only instagram_post_size is on by default.
	assert.False(t, item.StorySizeVersion)
	assert.False(t, item.CustomFlyer)
	assert.False(t, item.AnimatedFlyer)
	assert.True(t, item.InstagramPostSize)
}

func TestNormalize_DateTruncation(t *testing.T) {
	item, err := Normalize([]byte(`{"event_date": "2026-08-15T00:00:00.000Z"}`), Defaults{})
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", item.EventDate)

	item, err = Normalize([]byte(`{"event_date": "2026-08-15"}`), Defaults{})
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", item.EventDate)
}

func TestNormalize_NotAnObject(t *testing.T) {
	_, err := Normalize([]byte(`[1,2,3]`), Defaults{})
	require.Error(t, err)
}

func TestCoercePersons(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		got := CoercePersons(map[string]any{"name": "DJ One"})
		require.Len(t, got, 1)
		assert.Equal(t, "DJ One", got[0].Name)
	})

	t.Run("array", func(t *testing.T) {
		got := CoercePersons([]any{
			map[string]any{"name": "A", "image_url": "https://cdn.example.com/a.jpg"},
			map[string]any{"name": "B"},
		})
		require.Len(t, got, 2)
		assert.Equal(t, "https://cdn.example.com/a.jpg", got[0].ImageURL)
		assert.Empty(t, got[1].ImageURL)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, CoercePersons(nil))
	})

	t.Run("data url dropped", func(t *testing.T) {
		got := CoercePersons(map[string]any{"name": "C", "image_url": "data:image/png;base64,AAAA"})
		require.Len(t, got, 1)
		assert.Empty(t, got[0].ImageURL)
	})

	t.Run("image alias", func(t *testing.T) {
		got := CoercePersons(map[string]any{"name": "D", "image": "http://cdn.example.com/d.png"})
		require.Len(t, got, 1)
		assert.Equal(t, "http://cdn.example.com/d.png", got[0].ImageURL)
	})
}

func TestNormalize_TempFiles(t *testing.T) {
	raw := []byte(`{"temp_files": {"host_0": "/tmp/uploads/x/host.png", "dj_1": "", "sponsor_0": "/tmp/uploads/x/s.jpg"}}`)

	item, err := Normalize(raw, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"host_0":    "/tmp/uploads/x/host.png",
		"sponsor_0": "/tmp/uploads/x/s.jpg",
	}, item.TempFiles)
}

func TestLineItem_Amount(t *testing.T) {
	i := LineItem{Subtotal: decimal.RequireFromString("25"), TotalPrice: decimal.RequireFromString("40")}
	assert.True(t, decimal.RequireFromString("25").Equal(i.Amount()))

	i = LineItem{TotalPrice: decimal.RequireFromString("40")}
	assert.True(t, decimal.RequireFromString("40").Equal(i.Amount()))
}

func TestParsePayload_RawItemsFallbackChain(t *testing.T) {
	t.Run("items array", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"userId":"u1","items":[{"a":1},{"b":2}]}`))
		require.NoError(t, err)
		assert.Len(t, p.RawItems(), 2)
	})

	t.Run("legacy formData", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"userId":"u1","formData":{"event_title":"X"}}`))
		require.NoError(t, err)
		items := p.RawItems()
		require.Len(t, items, 1)
		assert.JSONEq(t, `{"event_title":"X"}`, string(items[0]))
	})

	t.Run("payload itself as item", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{"event_title":"Bare"}`))
		require.NoError(t, err)
		items := p.RawItems()
		require.Len(t, items, 1)
		assert.JSONEq(t, `{"event_title":"Bare"}`, string(items[0]))
	})
}
