package notify

import (
	"bytes"
	"html/template"
)

type content struct {
	subject  string
	category string
	body     *template.Template
}

var contents = map[Template]content{
	TemplateVerification: {
		subject:  "Verify your email",
		category: "Email Verification",
		body: template.Must(template.New("verification").Parse(
			`<p>Thank you for signing up! Your verification code is:</p>` +
				`<h1>{{.verification_code}}</h1>` +
				`<p>This code will expire in 24 hours.</p>`)),
	},
	TemplateWelcome: {
		subject:  "Welcome",
		category: "Welcome",
		body: template.Must(template.New("welcome").Parse(
			`<p>Welcome, {{.name}}! Your email address is verified.</p>`)),
	},
	TemplatePasswordReset: {
		subject:  "Reset your password",
		category: "Password Reset",
		body: template.Must(template.New("password_reset").Parse(
			`<p>We received a request to reset your password.</p>` +
				`<p><a href="{{.reset_url}}">Reset Password</a></p>` +
				`<p>This link will expire in 1 hour.</p>`)),
	},
	TemplateResetSuccess: {
		subject:  "Password reset successful",
		category: "Password Reset",
		body: template.Must(template.New("reset_success").Parse(
			`<p>Your password has been reset successfully.</p>`)),
	},
}

func render(msg Message) (subject, category, html string, err error) {
	c, ok := contents[msg.Template]
	if !ok {
		return "", "", "", ErrUnknownTemplate
	}

	var buf bytes.Buffer
	if err := c.body.Execute(&buf, msg.Params); err != nil {
		return "", "", "", err
	}
	return c.subject, c.category, buf.String(), nil
}
