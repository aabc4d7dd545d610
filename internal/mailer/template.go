package mailer

import (
	"bytes"
	"html/template"
)

// InvoiceEmailData carries the fields the invoice email renders.
type InvoiceEmailData struct {
	ClientName    string
	IssuerName    string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Total         string
	ViewURL       string
	PaymentURL    string
	Notes         string
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937; max-width: 560px; margin: 0 auto;">
  <h2 style="color:#111827;">Invoice {{.InvoiceNumber}}</h2>
  <p>Hi {{.ClientName}},</p>
  <p>{{.IssuerName}} has sent you an invoice for <strong>{{.Total}}</strong>.</p>
  <table style="width:100%; border-collapse: collapse; margin: 16px 0;">
    <tr>
      <td style="padding:6px 0; color:#6b7280;">Issue date</td>
      <td style="padding:6px 0; text-align:right;">{{.IssueDate}}</td>
    </tr>
    <tr>
      <td style="padding:6px 0; color:#6b7280;">Due date</td>
      <td style="padding:6px 0; text-align:right;">{{.DueDate}}</td>
    </tr>
  </table>
  {{if .Notes}}<p style="color:#6b7280;">{{.Notes}}</p>{{end}}
  {{if .ViewURL}}<p><a href="{{.ViewURL}}" style="display:inline-block; background:#2563eb; color:#ffffff; padding:10px 18px; border-radius:6px; text-decoration:none;">View invoice</a></p>{{end}}
  {{if .PaymentURL}}<p><a href="{{.PaymentURL}}">Pay online</a></p>{{end}}
  <p style="color:#9ca3af; font-size:12px;">The invoice PDF is attached for your records.</p>
</body>
</html>`))

// RenderInvoiceEmail produces the HTML body for an invoice email.
func RenderInvoiceEmail(data InvoiceEmailData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
