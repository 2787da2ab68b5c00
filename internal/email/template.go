package email

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ConfirmationData feeds the order confirmation template.
type ConfirmationData struct {
	OrderID      string
	CustomerName string
	FlyerName    string
	DeliveryTime string
	Extras       []string
	TotalPrice   decimal.Decimal
	ImageURL     string
	Year         int
}

// confirmationTmpl renders the dark-themed confirmation mail the storefront
// has always sent.
var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Order Confirmation</title>
</head>
<body style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #000000; color: #ffffff; margin: 0; padding: 0;">
  <div style="max-width: 600px; margin: 20px auto; background-color: #1a1a1a; border-radius: 12px; overflow: hidden;">
    <div style="background: linear-gradient(135deg, #b92025 0%, #000000 100%); padding: 30px; text-align: center;">
      <h1 style="margin: 0; color: #ffffff; font-size: 28px; letter-spacing: 1px;">FLYER APP</h1>
      <p style="margin: 5px 0 0; color: #cccccc; font-size: 14px; text-transform: uppercase; letter-spacing: 2px;">Premium Designs</p>
    </div>
    <div style="padding: 40px 30px;">
      <h2 style="margin-top: 0; color: #ffffff; font-size: 24px;">Order Confirmed!</h2>
      <p style="color: #cccccc; line-height: 1.6;">Hi {{.CustomerName}},</p>
      <p style="color: #cccccc; line-height: 1.6;">Thank you for your purchase. We've received your order and our team is getting ready to create something amazing for you.</p>
      <div style="background-color: #2a2a2a; border-radius: 8px; padding: 20px; margin-top: 30px; border: 1px solid #333;">
        <div style="border-bottom: 1px solid #444; padding-bottom: 15px; margin-bottom: 15px;">
          <span style="color: #999; font-size: 14px;">Order Number</span>
          <span style="color: #ffffff; font-family: monospace; font-size: 16px;">#{{.OrderID}}</span>
        </div>
{{- if .ImageURL}}
        <div style="text-align: center; margin: 20px 0;">
          <img src="{{.ImageURL}}" alt="{{.FlyerName}}" style="max-width: 100%; height: auto; border-radius: 8px;">
        </div>
{{- end}}
        <div style="margin-bottom: 15px;">
          <h3 style="margin: 0 0 5px; color: #ffffff; font-size: 18px;">{{.FlyerName}}</h3>
{{- if .DeliveryTime}}
          <p style="margin: 0; color: #888; font-size: 14px;">Delivery: {{.DeliveryTime}}</p>
{{- end}}
        </div>
{{- if .Extras}}
        <div style="margin-top: 10px; padding: 10px; background-color: #222; border-radius: 5px;">
          <strong style="color: #eee;">Extras:</strong>
          <ul style="margin: 5px 0 0 20px; padding: 0; color: #bbb;">
{{- range .Extras}}
            <li>{{.}}</li>
{{- end}}
          </ul>
        </div>
{{- end}}
        <div style="border-top: 1px solid #444; margin-top: 20px; padding-top: 20px;">
          <span style="color: #ffffff; font-weight: bold; font-size: 18px;">Total</span>
          <span style="color: #b92025; font-weight: bold; font-size: 24px;">${{.TotalPrice}}</span>
        </div>
      </div>
      <div style="margin-top: 30px;">
        <h3 style="color: #ffffff; font-size: 18px; margin-bottom: 10px;">What's Next?</h3>
        <p style="color: #999; font-size: 14px; line-height: 1.6;">Our designers will review your requirements and start working on your flyer. You will receive the first draft within the selected delivery time.</p>
      </div>
    </div>
    <div style="background-color: #000000; padding: 20px; text-align: center; border-top: 1px solid #333;">
      <p style="margin: 0; color: #555; font-size: 12px;">&copy; {{.Year}} Flyer App. All rights reserved.</p>
    </div>
  </div>
</body>
</html>
`))

// RenderConfirmation produces the HTML and plain-text bodies for an order
// confirmation email.
func RenderConfirmation(data ConfirmationData) (htmlBody, textBody string, err error) {
	if data.CustomerName == "" {
		data.CustomerName = "Valued Customer"
	}
	if data.Year == 0 {
		data.Year = time.Now().Year()
	}

	var b strings.Builder
	if err := confirmationTmpl.Execute(&b, data); err != nil {
		return "", "", errors.Wrap(err, "render confirmation template")
	}

	text := fmt.Sprintf("Thank you for your order #%s. Total: $%s. Your design for %s is in progress.",
		data.OrderID, data.TotalPrice, data.FlyerName)

	return b.String(), text, nil
}

// CustomerNameFromEmail derives a display name from a recipient address:
// the local part before '@', or a generic fallback.
func CustomerNameFromEmail(addr string) string {
	if i := strings.IndexByte(addr, '@'); i > 0 {
		return addr[:i]
	}
	return "Valued Customer"
}
