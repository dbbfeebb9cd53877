package notify

import (
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
)

var subjectTemplate = template.Must(template.New("subjectTemplate").Parse(
	`Price Alert: {{ .Name }} is now ${{ .Price }}`,
))

var bodyTemplate = template.Must(template.New("bodyTemplate").Parse(
	`The price for {{ .Name }} has dropped to ${{ .Price }}.
{{ if ne .Target "" -}}
Your target price was ${{ .Target }}.
{{ end }}
Link: {{ .URL }}
`,
))

type alertContext struct {
	Name   string
	Price  string
	Target string
	URL    string
}

// AlertMessage renders the subject and body of a price alert.
func AlertMessage(name string, price, target decimal.Decimal, url string) (subject, body string, err error) {
	c := alertContext{
		Name:  name,
		Price: price.StringFixed(2),
		URL:   url,
	}
	if !target.IsZero() {
		c.Target = target.StringFixed(2)
	}

	var sb strings.Builder
	if err := subjectTemplate.Execute(&sb, c); err != nil {
		return "", "", err
	}
	subject = sb.String()

	sb.Reset()
	if err := bodyTemplate.Execute(&sb, c); err != nil {
		return "", "", err
	}
	return subject, sb.String(), nil
}
