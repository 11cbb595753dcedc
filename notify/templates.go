package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"pickup-kitchen/models"
)

var orderPlacedTmpl = template.Must(template.New("order_placed").Parse(`<html><body>
<p>Hi {{.Order.FirstName}},</p>
<p>Thanks for your order. Your order code is <strong>{{.Order.Code}}</strong>.</p>
<p>Pickup: {{.Order.PickupTime}}</p>
<table>
{{range .Order.Items}}<tr><td>{{.ItemName}}</td><td>{{.Quantity}}{{if .SubQuantity}} x {{.SubQuantity}}{{end}}</td><td>{{.TotalPrice.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Order.Subtotal.StringFixed 2}}<br>Tax: {{.Order.Tax.StringFixed 2}}<br>Total: {{.Order.Total.StringFixed 2}}</p>
<p><a href="{{.Link}}">Track your order</a></p>
</body></html>`))

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>Use the link below to choose a new password. It expires in {{.ValidFor}}.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not ask for this you can ignore this email.</p>
</body></html>`))

// OrderPlaced renders the confirmation email for a committed order.
func OrderPlaced(order *models.Order, baseURL string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = orderPlacedTmpl.Execute(&buf, struct {
		Order *models.Order
		Link  string
	}{order, fmt.Sprintf("%s/api/orders/%s", baseURL, order.Code)})
	if err != nil {
		return "", "", fmt.Errorf("failed to render order email: %w", err)
	}
	return "Your order " + order.Code + " is placed", buf.String(), nil
}

func PasswordReset(name, link, validFor string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = passwordResetTmpl.Execute(&buf, struct {
		Name, Link, ValidFor string
	}{name, link, validFor})
	if err != nil {
		return "", "", fmt.Errorf("failed to render reset email: %w", err)
	}
	return "Reset your password", buf.String(), nil
}
