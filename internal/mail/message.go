// Package mail renders and delivers account emails.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type Kind string

const (
	KindVerification          Kind = "verification"
	KindPasswordReset         Kind = "passwordReset"
	KindPasswordChangeConfirm Kind = "passwordChangeConfirm"
	KindPasswordChanged       Kind = "passwordChanged"
)

// Message is what callers hand to a Sender. It is rendered only at delivery
// time so an outbox entry stays small.
type Message struct {
	To   string        `json:"to"`
	Kind Kind          `json:"kind"`
	Code string        `json:"code,omitempty"`
	TTL  time.Duration `json:"ttl,omitempty"`
}

type Rendered struct {
	Subject string
	HTML    string
}

type templateSpec struct {
	subject string
	body    *template.Template
}

var templates = map[Kind]templateSpec{
	KindVerification: {
		subject: "Verify your LPU Lost & Found Account",
		body: template.Must(template.New("verification").Parse(`<h1>Welcome to LPU Lost & Found!</h1>
<p>Use this code to verify your email address and activate your account:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>The code expires in {{.Minutes}} minutes. If you did not register for an account, please ignore this email.</p>`)),
	},
	KindPasswordReset: {
		subject: "LPU Lost & Found - Password Reset Request",
		body: template.Must(template.New("reset").Parse(`<h1>Password Reset Request</h1>
<p>Someone requested a password reset for the LPU Lost & Found account associated with this email address.</p>
<p>If this was you, enter this code in the app:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>The code expires in {{.Minutes}} minutes. If you did not request a reset, ignore this email and your password stays the same.</p>`)),
	},
	KindPasswordChangeConfirm: {
		subject: "Confirm Your Password Change - LPU Lost & Found",
		body: template.Must(template.New("change").Parse(`<p>Hello,</p>
<p>We received a request to change the password for your LPU Lost & Found account.</p>
<p>To confirm the change, enter this code within {{.Minutes}} minutes:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>
<p>If you did not request this change, ignore this email or contact support immediately.</p>
<p>Thanks,<br>LPU Lost &amp; Found Team</p>`)),
	},
	KindPasswordChanged: {
		subject: "Your LPU Lost & Found Password Has Been Changed",
		body: template.Must(template.New("changed").Parse(`<h1>Password Changed</h1>
<p>This email confirms that the password for your LPU Lost & Found account has been changed.</p>
<p>If you did not make this change, contact support immediately or reset your password again.</p>`)),
	},
}

func Render(msg Message) (Rendered, error) {
	spec, ok := templates[msg.Kind]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown mail kind %q", msg.Kind)
	}

	minutes := int(msg.TTL / time.Minute)
	if minutes <= 0 {
		minutes = 10
	}

	var buf bytes.Buffer
	if err := spec.body.Execute(&buf, struct {
		Code    string
		Minutes int
	}{msg.Code, minutes}); err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	return Rendered{Subject: spec.subject, HTML: buf.String()}, nil
}
