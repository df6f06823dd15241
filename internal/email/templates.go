package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type templateDef struct {
	file     string
	subject  string
	heading  string
	ctaLabel string
	ctaPath  string
}

// The cadence templates are the defaults of the reminder and follow-up steps.
var templateDefs = map[string]templateDef{
	"lead_assigned":       {file: "lead_assigned.html", subject: subjectLeadAssigned, heading: "A new lead is waiting", ctaLabel: "View lead", ctaPath: "/assignments/%s"},
	"assignment_expired":  {file: "assignment_expired.html", subject: subjectAssignmentExpired, heading: "Lead offer expired"},
	"lead_won":            {file: "lead_won.html", subject: subjectLeadWon, heading: "Congratulations", ctaLabel: "Open job", ctaPath: "/assignments/%s"},
	"lead_lost":           {file: "lead_lost.html", subject: subjectLeadLost, heading: "Thanks for quoting"},
	"assignment_reminder": {file: "assignment_reminder.html", subject: subjectAssignmentReminder, heading: "Your response is pending", ctaLabel: "Respond now", ctaPath: "/assignments/%s"},
	"assignment_followup": {file: "assignment_followup.html", subject: subjectAssignmentFollowup, heading: "Time to wrap up", ctaLabel: "Mark as completed", ctaPath: "/assignments/%s"},
}

type emailData struct {
	Title        string
	Heading      string
	CTALabel     string
	CTAURL       string
	BusinessName string
	LeadID       string
	AssignmentID string
	Deadline     string
	Step         string
}

// Renderer turns a notification template id and its data into a Message.
type Renderer struct {
	baseURL string
}

func NewRenderer(appBaseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(appBaseURL, "/")}
}

// Render fails for template ids without an embedded template.
func (r *Renderer) Render(to, templateID string, data map[string]any) (Message, error) {
	def, ok := templateDefs[templateID]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", templateID)
	}

	view := emailData{
		Title:        def.subject,
		Heading:      def.heading,
		CTALabel:     def.ctaLabel,
		BusinessName: stringValue(data, "businessName"),
		LeadID:       stringValue(data, "leadId"),
		AssignmentID: stringValue(data, "assignmentId"),
		Deadline:     stringValue(data, "responseDeadline"),
		Step:         stringValue(data, "step"),
	}
	if def.ctaPath != "" && view.AssignmentID != "" {
		view.CTAURL = r.baseURL + fmt.Sprintf(def.ctaPath, view.AssignmentID)
	}

	html, err := renderEmailTemplate(def.file, view)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: def.subject, HTML: html}, nil
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// stringValue reads a field that may have passed through a JSON task payload.
func stringValue(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return formatDeadline(ts)
		}
		return v
	case time.Time:
		return formatDeadline(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func formatDeadline(t time.Time) string {
	return t.UTC().Format("Mon Jan 2, 15:04 MST")
}
