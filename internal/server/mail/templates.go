package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// InviteData fills the director invitation.
type InviteData struct {
	SignerName string
	Workflow   string
	Link       string
	ExpiresAt  time.Time
}

// ReopenedData fills the "terms reopened" notification.
type ReopenedData struct {
	Kind    string
	DealID  string
	Version int
}

var (
	inviteText = texttemplate.Must(texttemplate.New("invite").Parse(
		`Hello {{.SignerName}},

You have been asked to sign the board consent for a {{.Workflow}} financing.

Open the link below to review and sign:
{{.Link}}

The link can be used once and expires at {{.ExpiresAt.UTC.Format "2006-01-02 15:04 MST"}}.
`))

	inviteHTML = htmltemplate.Must(htmltemplate.New("invite").Parse(
		`<p>Hello {{.SignerName}},</p>
<p>You have been asked to sign the board consent for a {{.Workflow}} financing.</p>
<p><a href="{{.Link}}">Review and sign</a></p>
<p>The link can be used once and expires at {{.ExpiresAt.UTC.Format "2006-01-02 15:04 MST"}}.</p>
`))

	reopenedText = texttemplate.Must(texttemplate.New("reopened").Parse(
		`The accepted {{.Kind}} terms of deal {{.DealID}} have been reopened.

A new offer (version {{.Version}}) is waiting for your review.
`))

	reopenedHTML = htmltemplate.Must(htmltemplate.New("reopened").Parse(
		`<p>The accepted {{.Kind}} terms of deal <b>{{.DealID}}</b> have been reopened.</p>
<p>A new offer (version {{.Version}}) is waiting for your review.</p>
`))
)


func render(text *texttemplate.Template, html *htmltemplate.Template, data any) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}

func RenderInvite(d InviteData) (Message, error) {
	text, html, err := render(inviteText, inviteHTML, d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Subject: "Board consent signature requested (" + strings.ToUpper(d.Workflow) + ")",
		Text:    text,
		HTML:    html,
	}, nil
}

func RenderTermsReopened(d ReopenedData) (Message, error) {
	text, html, err := render(reopenedText, reopenedHTML, d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Subject: "Term sheet reopened",
		Text:    text,
		HTML:    html,
	}, nil
}
