package email

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConfirmation(t *testing.T) {
	html, text, err := RenderConfirmation(ConfirmationData{
		OrderID:      "o-123",
		CustomerName: "sam",
		FlyerName:    "Summer Bash",
		DeliveryTime: "24 hours",
		Extras:       []string{"Animated (+$25)"},
		TotalPrice:   decimal.RequireFromString("65"),
		ImageURL:     "https://cdn.example.com/flyer.png",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "#o-123")
	assert.Contains(t, html, "Hi sam,")
	assert.Contains(t, html, "Summer Bash")
	assert.Contains(t, html, "Animated (+$25)")
	assert.Contains(t, html, "https://cdn.example.com/flyer.png")
	assert.Contains(t, text, "order #o-123")
	assert.Contains(t, text, "$65")
}

func TestRenderConfirmation_Defaults(t *testing.T) {
	html, _, err := RenderConfirmation(ConfirmationData{OrderID: "1", FlyerName: "X"})
	require.NoError(t, err)
	assert.Contains(t, html, "Valued Customer")
	assert.NotContains(t, html, "Extras:")
}

func TestRenderConfirmation_EscapesHTML(t *testing.T) {
	html, _, err := RenderConfirmation(ConfirmationData{
		OrderID:   "1",
		FlyerName: `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestCustomerNameFromEmail(t *testing.T) {
	assert.Equal(t, "sam", CustomerNameFromEmail("sam@example.com"))
	assert.Equal(t, "Valued Customer", CustomerNameFromEmail(""))
	assert.Equal(t, "Valued Customer", CustomerNameFromEmail("@nodomain"))
}
