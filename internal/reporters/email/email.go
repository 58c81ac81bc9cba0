// Package email is the digest reporter of spec.md §4.4: it sends every
// issue, regardless of publishability, to a fixed address list.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/mozilla/code-review/internal/reporters"
)

const digestTemplate = `
<h2>Code review digest: {{.Repository.Slug}}</h2>
<p>Revision {{.Revision.ProviderID}} ({{.Revision.Title}}), diff {{.Diff.ProviderDiffID}}</p>
<table border="1" cellpadding="4">
<tr><th>Path</th><th>Line</th><th>Analyzer</th><th>Check</th><th>Level</th><th>Publishable</th><th>Message</th></tr>
{{range .Issues}}<tr>
<td>{{.Path}}</td><td>{{if .Line}}{{.Line}}{{else}}-{{end}}</td><td>{{.Analyzer}}</td>
<td>{{.Check}}</td><td>{{.Level}}</td><td>{{.Publishable}}</td><td>{{.Message}}</td>
</tr>{{end}}
</table>
`

// Sender abstracts outbound SMTP delivery so reporters are testable
// without a live mail server.
type Sender interface {
	Send(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type smtpSender struct{ addr string }

func (s smtpSender) Send(_ string, a smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(s.addr, a, from, to, msg)
}

type Reporter struct {
	sender     Sender
	smtpAddr   string
	auth       smtp.Auth
	from       string
	recipients []string
	tmpl       *template.Template
}

func New(smtpAddr string, auth smtp.Auth, from string, recipients []string) *Reporter {
	return &Reporter{
		sender:     smtpSender{addr: smtpAddr},
		smtpAddr:   smtpAddr,
		auth:       auth,
		from:       from,
		recipients: recipients,
		tmpl:       template.Must(template.New("digest").Parse(digestTemplate)),
	}
}

func (r *Reporter) Name() string { return "email" }

// Report sends the digest to the configured address list, including every
// issue regardless of publishability.
func (r *Reporter) Report(_ context.Context, rep reporters.Report) error {
	recipients := r.recipients
	var body bytes.Buffer
	if err := r.tmpl.Execute(&body, rep); err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	msg := buildMessage(r.from, recipients, fmt.Sprintf("Code review digest: %s", rep.Repository.Slug), body.String())
	if err := r.sender.Send(r.smtpAddr, r.auth, r.from, recipients, msg); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", joinAddrs(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}

func joinAddrs(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
