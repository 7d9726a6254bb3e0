package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var (
	resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Password Reset Request</h2>
<p>Hello {{.Name}},</p>
<p>We received a request to reset the password of your Attendance System account. Use the code below to continue:</p>
<p style="font-size:32px;font-weight:bold;letter-spacing:8px">{{.Code}}</p>
<p>This code expires in {{.ExpiresIn}}. If you did not request a reset you can ignore this email.</p>
</div>`))

	welcomeTemplate = template.Must(template.New("welcome").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Welcome to the Attendance System!</h2>
<p>Hello {{.Name}},</p>
<p>Your account has been created with the role <strong>{{.Role}}</strong>.</p>
<ul>
<li>Clock in and out from within an office radius</li>
<li>Review your attendance history and monthly summary</li>
</ul>
<p>Working hours start at {{.Cutoff}}.</p>
</div>`))
)

func PasswordResetMessage(to, name, code string, ttl time.Duration) (Message, error) {
	expiresIn := fmt.Sprintf("%d minutes", int(ttl.Minutes()))

	var html bytes.Buffer
	err := resetTemplate.Execute(&html, map[string]string{"Name": name, "Code": code, "ExpiresIn": expiresIn})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: "Password Reset - Attendance System",
		HTML:    html.String(),
		Text: fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %s.\n\nIf you did not request a reset you can ignore this email.",
			name, code, expiresIn),
	}, nil
}

func WelcomeMessage(to, name, role, cutoff string) (Message, error) {
	var html bytes.Buffer
	err := welcomeTemplate.Execute(&html, map[string]string{"Name": name, "Role": role, "Cutoff": cutoff})
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: "Welcome to the Attendance System!",
		HTML:    html.String(),
		Text:    fmt.Sprintf("Hello %s,\n\nYour account has been created with the role %s. Working hours start at %s.", name, role, cutoff),
	}, nil
}
