package smtp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

const (
	TemplateActivation     = "user-activation-mail"
	TemplateResendOTP      = "resend-otp"
	TemplateForgotPassword = "forgot-password-user-mail"
)

var subjects = map[string]string{
	TemplateActivation:     "Verify your email",
	TemplateResendOTP:      "Your new verification code",
	TemplateForgotPassword: "Reset your password",
}

//go:embed templates/*.html
var templateFS embed.FS

// TemplateData is the data every OTP email template renders.
type TemplateData struct {
	Name      string
	OTP       string
	ExpiresIn string
}

type view struct {
	TemplateData
	Title string
	Year  int
}

// TemplateMailer renders a named template and hands the result to a Mailer.
type TemplateMailer struct {
	sender    Mailer
	templates map[string]*template.Template
}

func NewTemplateMailer(sender Mailer) (*TemplateMailer, error) {
	tm := &TemplateMailer{sender: sender, templates: make(map[string]*template.Template, len(subjects))}
	for name := range subjects {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		tm.templates[name] = t
	}
	return tm, nil
}

// Render returns the subject and HTML body for the named template.
func (m *TemplateMailer) Render(name string, data TemplateData) (string, string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	subject := subjects[name]
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view{TemplateData: data, Title: subject, Year: time.Now().Year()}); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", name, err)
	}
	return subject, buf.String(), nil
}

func (m *TemplateMailer) SendTemplate(to, name string, data TemplateData) error {
	subject, body, err := m.Render(name, data)
	if err != nil {
		return err
	}
	return m.sender.SendEmail(to, subject, body)
}
