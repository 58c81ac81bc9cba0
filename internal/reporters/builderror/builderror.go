// Package builderror is the build-error reporter of spec.md §4.4: when any
// level=error issue with analyzer="pipeline" is present, it sends an
// additional email to the revision's author.
package builderror

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/mozilla/code-review/internal/domain"
	"github.com/mozilla/code-review/internal/reporters"
)

// AuthorResolver looks up the notification address for a revision's
// author; out of scope per spec.md §1, it is injected.
type AuthorResolver interface {
	AuthorEmail(ctx context.Context, rev domain.Revision) (string, error)
}

type Sender interface {
	Send(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type smtpSender struct{ addr string }

func (s smtpSender) Send(_ string, a smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(s.addr, a, from, to, msg)
}

type Reporter struct {
	sender   Sender
	smtpAddr string
	auth     smtp.Auth
	from     string
	authors  AuthorResolver
}

func New(smtpAddr string, auth smtp.Auth, from string, authors AuthorResolver) *Reporter {
	return &Reporter{sender: smtpSender{addr: smtpAddr}, smtpAddr: smtpAddr, auth: auth, from: from, authors: authors}
}

func (r *Reporter) Name() string { return "build_error" }

func (r *Reporter) Report(ctx context.Context, rep reporters.Report) error {
	var buildErrors int
	for _, i := range rep.Issues {
		if i.Level == domain.LevelError && i.Analyzer == "pipeline" {
			buildErrors++
		}
	}
	if buildErrors == 0 {
		return nil
	}

	to, err := r.authors.AuthorEmail(ctx, rep.Revision)
	if err != nil {
		return fmt.Errorf("resolve revision author: %w", err)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "The build for revision %s (diff %d) reported %d pipeline error(s).\r\n",
		rep.Revision.Title, rep.Diff.ProviderDiffID, buildErrors)

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", r.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Build error: %s\r\n\r\n", rep.Revision.Title)
	b.Write(body.Bytes())

	if err := r.sender.Send(r.smtpAddr, r.auth, r.from, []string{to}, b.Bytes()); err != nil {
		return fmt.Errorf("send build-error email: %w", err)
	}
	return nil
}
