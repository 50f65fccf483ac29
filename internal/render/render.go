// Package render turns a report into text for agents and people.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/azure/last30days/internal/models"
)

const (
	snippetItems  = 5
	compactQuotes = 2
)

// JSON renders the report as indented JSON.
func JSON(report *models.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Compact renders a dense, ranked summary meant to be read by an agent.
func Compact(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("## Research Results: %s\n\n", report.Topic))
	text.WriteString(fmt.Sprintf("**Date Range:** %s to %s\n", report.RangeFrom, report.RangeTo))
	text.WriteString(fmt.Sprintf("**Mode:** %s\n", report.Mode))
	if report.OpenAIModelUsed != nil {
		text.WriteString(fmt.Sprintf("**OpenAI Model:** %s\n", *report.OpenAIModelUsed))
	}
	if report.XAIModelUsed != nil {
		text.WriteString(fmt.Sprintf("**xAI Model:** %s\n", *report.XAIModelUsed))
	}
	text.WriteString("\n")

	if report.Mode.IncludesReddit() {
		text.WriteString("### Reddit Threads\n\n")
		switch {
		case report.RedditError != "":
			text.WriteString(fmt.Sprintf("**ERROR:** %s\n\n", report.RedditError))
		case len(report.Reddit) == 0:
			text.WriteString("*No relevant Reddit threads found*\n\n")
		}
		for i, item := range report.Reddit {
			text.WriteString(fmt.Sprintf("**R%d** (score:%d) r/%s%s%s\n", i+1, item.Score, item.Subreddit, dateSuffix(item.Date, item.DateConfidence), engagementSuffix(item.Engagement)))
			text.WriteString(fmt.Sprintf("  %s\n", item.Title))
			text.WriteString(fmt.Sprintf("  %s\n", item.URL))
			if item.WhyRelevant != "" {
				text.WriteString(fmt.Sprintf("  *%s*\n", item.WhyRelevant))
			}
			for j, insight := range item.CommentInsights {
				if j >= compactQuotes {
					break
				}
				text.WriteString(fmt.Sprintf("  - %s\n", insight))
			}
			text.WriteString("\n")
		}
	}

	if report.Mode.IncludesX() {
		text.WriteString("### X Posts\n\n")
		switch {
		case report.XError != "":
			text.WriteString(fmt.Sprintf("**ERROR:** %s\n\n", report.XError))
		case len(report.X) == 0:
			text.WriteString("*No relevant X posts found*\n\n")
		}
		for i, item := range report.X {
			text.WriteString(fmt.Sprintf("**X%d** (score:%d) @%s%s%s\n", i+1, item.Score, item.AuthorHandle, dateSuffix(item.Date, item.DateConfidence), engagementSuffix(item.Engagement)))
			text.WriteString(fmt.Sprintf("  %s\n", item.Text))
			text.WriteString(fmt.Sprintf("  %s\n", item.URL))
			if item.WhyRelevant != "" {
				text.WriteString(fmt.Sprintf("  *%s*\n", item.WhyRelevant))
			}
			text.WriteString("\n")
		}
	}

	return text.String()
}

// FullReport renders the complete markdown report.
func FullReport(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("# %s - Last 30 Days Research Report\n\n", report.Topic))
	text.WriteString(fmt.Sprintf("**Generated:** %s\n", report.GeneratedAt))
	text.WriteString(fmt.Sprintf("**Date Range:** %s to %s\n", report.RangeFrom, report.RangeTo))
	text.WriteString(fmt.Sprintf("**Mode:** %s\n\n", report.Mode))

	text.WriteString("## Models Used\n\n")
	text.WriteString(fmt.Sprintf("- **OpenAI:** %s\n", orNone(report.OpenAIModelUsed)))
	text.WriteString(fmt.Sprintf("- **xAI:** %s\n\n", orNone(report.XAIModelUsed)))

	if len(report.BestPractices) > 0 {
		text.WriteString("## Best Practices\n\n")
		for _, p := range report.BestPractices {
			text.WriteString(fmt.Sprintf("- %s\n", p))
		}
		text.WriteString("\n")
	}

	if len(report.PromptPack) > 0 {
		text.WriteString("## Prompt Pack\n\n")
		for _, p := range report.PromptPack {
			text.WriteString(fmt.Sprintf("```\n%s\n```\n\n", p))
		}
	}

	if report.Mode.IncludesReddit() {
		text.WriteString("## Reddit Threads\n\n")
		if report.RedditError != "" {
			text.WriteString(fmt.Sprintf("**Error:** %s\n\n", report.RedditError))
		}
		for _, item := range report.Reddit {
			text.WriteString(fmt.Sprintf("### %s: %s\n\n", item.ID, item.Title))
			text.WriteString(fmt.Sprintf("- **Subreddit:** r/%s\n", item.Subreddit))
			text.WriteString(fmt.Sprintf("- **URL:** %s\n", item.URL))
			text.WriteString(fmt.Sprintf("- **Date:** %s (confidence: %s)\n", orUnknown(item.Date), item.DateConfidence))
			text.WriteString(fmt.Sprintf("- **Score:** %d/100 (relevance %d, recency %d, engagement %d)\n", item.Score, item.Subs.Relevance, item.Subs.Recency, item.Subs.Engagement))
			if e := item.Engagement; e != nil {
				text.WriteString(fmt.Sprintf("- **Engagement:** %s\n", engagementText(e)))
			}
			if item.WhyRelevant != "" {
				text.WriteString(fmt.Sprintf("\n%s\n", item.WhyRelevant))
			}
			if len(item.CommentInsights) > 0 {
				text.WriteString("\n**Key Insights from Comments:**\n")
				for _, insight := range item.CommentInsights {
					text.WriteString(fmt.Sprintf("- %s\n", insight))
				}
			}
			if len(item.TopComments) > 0 {
				text.WriteString("\n**Top Comments:**\n")
				for _, c := range item.TopComments {
					text.WriteString(fmt.Sprintf("> %s\n> - u/%s (%d points)\n\n", c.Excerpt, c.Author, c.Score))
				}
			}
			text.WriteString("\n---\n\n")
		}
	}

	if report.Mode.IncludesX() {
		text.WriteString("## X Posts\n\n")
		if report.XError != "" {
			text.WriteString(fmt.Sprintf("**Error:** %s\n\n", report.XError))
		}
		for _, item := range report.X {
			text.WriteString(fmt.Sprintf("### %s: @%s\n\n", item.ID, item.AuthorHandle))
			text.WriteString(fmt.Sprintf("%s\n\n", item.Text))
			text.WriteString(fmt.Sprintf("- **URL:** %s\n", item.URL))
			text.WriteString(fmt.Sprintf("- **Date:** %s (confidence: %s)\n", orUnknown(item.Date), item.DateConfidence))
			text.WriteString(fmt.Sprintf("- **Score:** %d/100 (relevance %d, recency %d, engagement %d)\n", item.Score, item.Subs.Relevance, item.Subs.Recency, item.Subs.Engagement))
			if e := item.Engagement; e != nil {
				text.WriteString(fmt.Sprintf("- **Engagement:** %s\n", engagementText(e)))
			}
			if item.WhyRelevant != "" {
				text.WriteString(fmt.Sprintf("\n%s\n", item.WhyRelevant))
			}
			text.WriteString("\n---\n\n")
		}
	}

	return text.String()
}

// ContextSnippet renders the short, reusable context file.
func ContextSnippet(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("# Context: %s (Last 30 Days)\n\n", report.Topic))
	text.WriteString(fmt.Sprintf("*Generated: %s | Sources: %s*\n\n", report.RangeTo, report.Mode))

	if len(report.BestPractices) > 0 {
		text.WriteString("## Key Practices\n\n")
		for i, p := range report.BestPractices {
			if i >= snippetItems {
				break
			}
			text.WriteString(fmt.Sprintf("- %s\n", p))
		}
		text.WriteString("\n")
	}

	text.WriteString("## Key Sources\n\n")
	var lines []string
	for _, item := range report.Reddit {
		lines = append(lines, fmt.Sprintf("- [Reddit r/%s] %s (%s)", item.Subreddit, item.Title, item.URL))
		if len(lines) >= snippetItems {
			break
		}
	}
	for i, item := range report.X {
		if i >= snippetItems {
			break
		}
		lines = append(lines, fmt.Sprintf("- [X @%s] %s (%s)", item.AuthorHandle, oneLine(item.Text, 120), item.URL))
	}
	if len(lines) == 0 {
		lines = append(lines, "- No sources found in the last 30 days.")
	}
	text.WriteString(strings.Join(lines, "\n"))
	text.WriteString("\n")

	if report.RedditError != "" || report.XError != "" {
		text.WriteString("\n## Caveats\n\n")
		if report.RedditError != "" {
			text.WriteString(fmt.Sprintf("- Reddit results unavailable: %s\n", report.RedditError))
		}
		if report.XError != "" {
			text.WriteString(fmt.Sprintf("- X results unavailable: %s\n", report.XError))
		}
	}

	return text.String()
}

func dateSuffix(date *string, confidence models.DateConfidence) string {
	if date == nil {
		return " (date unknown)"
	}
	if confidence == models.ConfidenceHigh {
		return fmt.Sprintf(" (%s)", *date)
	}
	return fmt.Sprintf(" (~%s)", *date)
}

func engagementSuffix(e *models.Engagement) string {
	if e == nil {
		return ""
	}
	return " [" + engagementText(e) + "]"
}

func engagementText(e *models.Engagement) string {
	var parts []string
	add := func(v *int, label string) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%d%s", *v, label))
		}
	}
	add(e.Score, "pts")
	add(e.NumComments, "cmt")
	if e.UpvoteRatio != nil {
		parts = append(parts, fmt.Sprintf("%.0f%% upvoted", *e.UpvoteRatio*100))
	}
	add(e.Likes, "likes")
	add(e.Reposts, "rt")
	add(e.Replies, "re")
	add(e.Quotes, "qt")
	return strings.Join(parts, ", ")
}

func orNone(s *string) string {
	if s == nil {
		return "(not used)"
	}
	return *s
}

func orUnknown(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
