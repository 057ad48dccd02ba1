// Package mail renders templated emails and delivers them over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.md
var templateFS embed.FS

var (
	templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.md"))
	markdown  = goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
)

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Render executes templates/<kind>.md with data.  The first line of a
// template is the subject, separated from the markdown body by "---".
func Render(kind, to string, data any) (Message, error) {
	t := templates.Lookup(kind + ".md")
	if t == nil {
		return Message{}, fmt.Errorf("mail: unknown template %q", kind)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s: %w", kind, err)
	}
	subject, body, ok := strings.Cut(buf.String(), "\n---\n")
	if !ok {
		return Message{}, fmt.Errorf("mail: template %s has no subject line", kind)
	}
	var out bytes.Buffer
	if err := markdown.Convert([]byte(body), &out); err != nil {
		return Message{}, fmt.Errorf("mail: markdown %s: %w", kind, err)
	}
	return Message{
		To:      to,
		Subject: strings.TrimSpace(subject),
		Text:    strings.TrimSpace(body) + "\n",
		HTML:    out.String(),
	}, nil
}
