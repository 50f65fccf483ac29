package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const topItems = 5

// Service delivers finished reports via Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
	send   func(m *gomail.Message) error
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	s := &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		return d.DialAndSend(m)
	}
	return s
}

// SendReport sends a report via configured notification channels
func (s *Service) SendReport(report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Infof("Sent %q report to Teams", report.Topic)
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Infof("Sent %q report via email", report.Topic)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.Report) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(report)).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Last 30 Days: %s", report.Topic),
		Text:    fmt.Sprintf("%d Reddit threads and %d X posts from %s to %s", len(report.Reddit), len(report.X), report.RangeFrom, report.RangeTo),
	}

	facts := []TeamsFact{
		{Name: "Mode", Value: string(report.Mode)},
		{Name: "Generated", Value: report.GeneratedAt},
	}
	if report.RedditError != "" {
		facts = append(facts, TeamsFact{Name: "Reddit error", Value: report.RedditError})
	}
	if report.XError != "" {
		facts = append(facts, TeamsFact{Name: "X error", Value: report.XError})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if lines := topLines(report); len(lines) > 0 {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Top Results",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func topLines(report *models.Report) []string {
	var lines []string
	for i, item := range report.Reddit {
		if i >= topItems {
			break
		}
		lines = append(lines, fmt.Sprintf("**[%s](%s)** - r/%s (score %d)", item.Title, item.URL, item.Subreddit, item.Score))
	}
	for i, item := range report.X {
		if i >= topItems {
			break
		}
		lines = append(lines, fmt.Sprintf("**[@%s](%s)** - %s (score %d)", item.AuthorHandle, item.URL, truncate(item.Text, 120), item.Score))
	}
	return lines
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("Last 30 Days: %s (%d results)", report.Topic, len(report.Reddit)+len(report.X))

	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Last 30 Days: {{.Topic}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .item { border-left: 4px solid #0078d4; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .item-title { font-weight: bold; margin-bottom: 5px; }
        .item-meta { color: #666; font-size: 0.9em; }
        .error { color: #d13438; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Topic}}</h1>
        <p>{{.RangeFrom}} to {{.RangeTo}} &middot; {{.Mode}}</p>
    </div>

    {{if .RedditError}}<p class="error">Reddit: {{.RedditError}}</p>{{end}}
    {{if .XError}}<p class="error">X: {{.XError}}</p>{{end}}

    {{if .Reddit}}
    <h2>Reddit Threads</h2>
    {{range $index, $item := .Reddit}}{{if lt $index 10}}
    <div class="item">
        <div class="item-title"><a href="{{$item.URL}}" target="_blank">{{$item.Title}}</a></div>
        <div class="item-meta">r/{{$item.Subreddit}}{{if $item.Date}} | {{deref $item.Date}}{{end}} | Score: {{$item.Score}}</div>
        {{if $item.WhyRelevant}}<p>{{$item.WhyRelevant | truncate 200}}</p>{{end}}
    </div>
    {{end}}{{end}}
    {{end}}

    {{if .X}}
    <h2>X Posts</h2>
    {{range $index, $item := .X}}{{if lt $index 10}}
    <div class="item">
        <div class="item-title"><a href="{{$item.URL}}" target="_blank">@{{$item.AuthorHandle}}</a></div>
        <div class="item-meta">{{if $item.Date}}{{deref $item.Date}} | {{end}}Score: {{$item.Score}}</div>
        <p>{{$item.Text | truncate 200}}</p>
    </div>
    {{end}}{{end}}
    {{end}}
</body>
</html>
`

func buildEmailHTML(report *models.Report) (string, error) {
	t := template.New("email").Funcs(template.FuncMap{
		"truncate": func(length int, s string) string { return truncate(s, length) },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	})

	t, err := t.Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Last 30 Days: %s\n", report.Topic))
	text.WriteString(fmt.Sprintf("%s to %s (%s)\n", report.RangeFrom, report.RangeTo, report.Mode))
	text.WriteString(fmt.Sprintf("Generated: %s\n", report.GeneratedAt))

	if len(report.Reddit) > 0 {
		text.WriteString("\nREDDIT THREADS\n")
		text.WriteString("==============\n")
		for i, item := range report.Reddit {
			if i >= 10 {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, item.Title))
			text.WriteString(fmt.Sprintf("   r/%s | Score: %d\n", item.Subreddit, item.Score))
			text.WriteString(fmt.Sprintf("   URL: %s\n", item.URL))
		}
	}

	if len(report.X) > 0 {
		text.WriteString("\nX POSTS\n")
		text.WriteString("=======\n")
		for i, item := range report.X {
			if i >= 10 {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. @%s: %s\n", i+1, item.AuthorHandle, truncate(item.Text, 200)))
			text.WriteString(fmt.Sprintf("   Score: %d\n", item.Score))
			text.WriteString(fmt.Sprintf("   URL: %s\n", item.URL))
		}
	}

	if report.RedditError != "" {
		text.WriteString(fmt.Sprintf("\nReddit error: %s\n", report.RedditError))
	}
	if report.XError != "" {
		text.WriteString(fmt.Sprintf("X error: %s\n", report.XError))
	}

	return text.String()
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length]) + "..."
}
