package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// Template names
const (
	TemplateVerificationCode = "verification_code"
	TemplateWelcome          = "welcome"
	TemplatePasswordReset    = "password_reset"
	TemplatePasswordChanged  = "password_changed"
)

var templateSubjects = map[string]string{
	TemplateVerificationCode: "Verify your email address",
	TemplateWelcome:          "Welcome aboard!",
	TemplatePasswordReset:    "Reset your password",
	TemplatePasswordChanged:  "Your password was changed",
}

var templateBodies = map[string]string{
	TemplateVerificationCode: `
<p>Hi {{ .Name | default "there" }},</p>
<p>Your verification code is <strong>{{ .Code }}</strong>.</p>
<p>The code expires in {{ .ExpiresMinutes }} minutes. If you did not sign up, you can ignore this email.</p>`,

	TemplateWelcome: `
<p>Hi {{ .Name | default "there" }},</p>
<p>Your email has been verified and your account is ready to use. Welcome!</p>`,

	TemplatePasswordReset: `
<p>Hi {{ .Name | default "there" }},</p>
<p><a href="{{ .ResetLink }}">Click here to reset your password</a>. The link expires in {{ .ExpiresMinutes }} minutes.</p>
<p>If you did not request a reset, no action is needed.</p>`,

	TemplatePasswordChanged: `
<p>Hi {{ .Name | default "there" }},</p>
<p>Your password was just changed and all active sessions were signed out.</p>
<p>If this was not you, reset your password immediately.</p>`,
}

// Bodies render through html/template so user-controlled fields such as the
// display name arrive escaped, never as markup.
var templates = func() map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(templateBodies))
	for name, body := range templateBodies {
		parsed[name] = template.Must(
			template.New(name).Funcs(sprig.HtmlFuncMap()).Parse(body),
		)
	}
	return parsed
}()

// Render produces a ready-to-send message from a named template.
func Render(name, to string, data any) (Message, error) {
	tmpl, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("mailer: unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("mailer: failed to render template %q: %w", name, err)
	}

	return Message{
		To:       to,
		Subject:  templateSubjects[name],
		HTMLBody: buf.String(),
		Tag:      name,
	}, nil
}
