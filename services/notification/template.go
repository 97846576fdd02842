package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/upb/leaddesk/models"
)

const subjectTemplate = `{{.Prefix}}: {{.Lead.Name}}`

const textTemplate = `A new lead was submitted.

Name: {{.Lead.Name}}
Email: {{.Lead.Email}}
{{- if .Lead.Message}}
Message: {{.Lead.MessageText}}
{{- end}}
Received: {{.Lead.CreatedAt.Format "2006-01-02 15:04:05 MST"}}
{{- if .Lead.AdditionalFields}}

Additional fields:
{{- range $k, $v := .Lead.AdditionalFields}}
  {{$k}}: {{$v}}
{{- end}}
{{- end}}
{{- if .Lead.Meta}}

Meta:
{{- range $k, $v := .Lead.Meta}}
  {{$k}}: {{$v}}
{{- end}}
{{- end}}
`

const htmlTemplate = `<h2>New lead: {{.Lead.Name}}</h2>
<table>
<tr><th align="left">Name</th><td>{{.Lead.Name}}</td></tr>
<tr><th align="left">Email</th><td><a href="mailto:{{.Lead.Email}}">{{.Lead.Email}}</a></td></tr>
{{- if .Lead.Message}}
<tr><th align="left">Message</th><td>{{.Lead.MessageText}}</td></tr>
{{- end}}
<tr><th align="left">Received</th><td>{{.Lead.CreatedAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>
{{- range $k, $v := .Lead.AdditionalFields}}
<tr><th align="left">{{$k}}</th><td>{{$v}}</td></tr>
{{- end}}
{{- range $k, $v := .Lead.Meta}}
<tr><th align="left">meta.{{$k}}</th><td>{{$v}}</td></tr>
{{- end}}
</table>
`

// Message is a rendered notification
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer renders lead notifications
type Renderer struct {
	prefix  string
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

type templateData struct {
	Prefix string
	Lead   *models.Lead
}

// NewRenderer parses the notification templates. prefix starts the subject line.
func NewRenderer(prefix string) *Renderer {
	if prefix == "" {
		prefix = "New lead"
	}
	return &Renderer{
		prefix:  prefix,
		subject: template.Must(template.New("subject").Parse(subjectTemplate)),
		text:    template.Must(template.New("text").Parse(textTemplate)),
		html:    htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate)),
	}
}

// Render produces the subject and bodies for a lead
func (r *Renderer) Render(lead *models.Lead) (*Message, error) {
	data := templateData{Prefix: r.prefix, Lead: lead}

	var subject, text, html bytes.Buffer
	if err := r.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	if err := r.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Message{
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
