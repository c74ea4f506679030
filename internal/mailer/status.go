package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/status_update.tmpl
var templateFS embed.FS

var statusTmpl = template.Must(template.ParseFS(templateFS, "templates/status_update.tmpl"))

// StatusUpdate tells a submitter that their complaint changed status.
type StatusUpdate struct {
	To            string
	ComplaintType string
	StudentName   string
	Status        string
	ComplaintID   string
}

// Message renders the notification email.
func (u StatusUpdate) Message() (Message, error) {
	var buf bytes.Buffer
	if err := statusTmpl.Execute(&buf, u); err != nil {
		return Message{}, fmt.Errorf("mailer: render status update: %w", err)
	}
	return Message{
		To:      []string{u.To},
		Subject: fmt.Sprintf("Your %s complaint status: %s", u.ComplaintType, u.Status),
		Body:    buf.String(),
	}, nil
}
