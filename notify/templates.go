package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/MrEthical07/storefront"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultBrand is the product name printed in the email footer.
const DefaultBrand = "SHOPPY"

type templateSpec struct {
	file    string
	subject string
}

var templateSpecs = map[storefront.TemplateID]templateSpec{
	storefront.TemplateEmailVerify:   {file: "templates/verify_email.html", subject: "Verify Your Email"},
	storefront.TemplatePasswordReset: {file: "templates/reset_password.html", subject: "Reset Your Password"},
}

type templateData struct {
	ToEmail      string
	Otp          string
	SupportEmail string
	Brand        string
}

// Renderer turns notifications into subject and HTML body.
type Renderer struct {
	supportEmail string
	brand        string
	templates    map[storefront.TemplateID]*template.Template
}

// NewRenderer parses the embedded templates. supportEmail appears in every
// footer.
func NewRenderer(supportEmail, brand string) (*Renderer, error) {
	if brand == "" {
		brand = DefaultBrand
	}
	r := &Renderer{
		supportEmail: supportEmail,
		brand:        brand,
		templates:    make(map[storefront.TemplateID]*template.Template, len(templateSpecs)),
	}
	for id, spec := range templateSpecs {
		t, err := template.ParseFS(templateFS, spec.file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", id, err)
		}
		r.templates[id] = t
	}
	return r, nil
}

// Render returns the subject and body for n.
func (r *Renderer) Render(n storefront.Notification) (subject, body string, err error) {
	t, ok := r.templates[n.Template]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, n.Template)
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, templateData{
		ToEmail:      n.Params[storefront.ParamToEmail],
		Otp:          n.Params[storefront.ParamOtp],
		SupportEmail: r.supportEmail,
		Brand:        r.brand,
	})
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Template, err)
	}
	return templateSpecs[n.Template].subject, buf.String(), nil
}
