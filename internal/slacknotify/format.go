package slacknotify

import (
	"fmt"
	"strings"
	"time"

	"github.com/outofoffice3/org-guardrails/internal/findingmgr"
	"github.com/outofoffice3/org-guardrails/internal/shared"
	"github.com/slack-go/slack"
)

const (
	HeaderText            = "🚨 AWS Guardrails Compliance Report"
	UnknownReportDate     = "Unknown"
	MaxSummaryGuardrails  = 5
	MaxGuardrailSections  = 10
	MaxAccountsPerControl = 5
	MaxArnsPerControl     = 3
	MaxSectionLength      = 3000
	MaxArnLength          = 60
	arnTailLength         = 20
	alertTimeFormat       = "2006-01-02 15:04:05 UTC"
	nextStepsText         = "💡 *Next Steps:* Review the non-compliant resources and take corrective action according to your organization's policies."
)

// FilterAccountFindings drops findings on the organization account pseudo resource.
func FilterAccountFindings(findings []shared.Finding) []shared.Finding {
	filtered := make([]shared.Finding, 0, len(findings))
	for _, finding := range findings {
		if strings.TrimSpace(finding.ResourceType) == string(shared.OrganizationAccountType) {
			continue
		}
		filtered = append(filtered, finding)
	}
	return filtered
}

// ReportDate is the text after the last '_' of the file name without the extension.
func ReportDate(sourceFile string) string {
	i := strings.LastIndex(sourceFile, "_")
	if i < 0 {
		return UnknownReportDate
	}
	return strings.TrimSuffix(sourceFile[i+1:], shared.CSVExtension)
}

// ShortenArn keeps the partition, service, region and account of an overlong arn plus the
// last characters of the resource.  Lengths count runes, not bytes.
func ShortenArn(arn string) string {
	runes := []rune(arn)
	if len(runes) <= MaxArnLength {
		return arn
	}
	parts := strings.Split(arn, ":")
	if len(parts) >= 6 {
		resource := []rune(parts[len(parts)-1])
		if len(resource) > arnTailLength {
			resource = resource[len(resource)-arnTailLength:]
		}
		return strings.Join(parts[:5], ":") + ":..." + string(resource)
	}
	return string(runes[:MaxArnLength-3]) + "..."
}

// FallbackText is the notification text shown by clients that do not render blocks.
func FallbackText(count int) string {
	return fmt.Sprintf("%s - %d Non-Compliant Items Found", HeaderText, count)
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

// BuildMessage renders findings as a block kit webhook message.  Findings are expected to be
// filtered already and non empty.
func BuildMessage(findings []shared.Finding, sourceFile string, alertTime time.Time) *slack.WebhookMessage {
	fm := findingmgr.Init()
	accounts := make(map[string]struct{})
	for _, finding := range findings {
		fm.Add(finding)
		accounts[finding.AccountId] = struct{}{}
	}
	groups := fm.GetGuardrails()

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, HeaderText, true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			markdown(fmt.Sprintf("*📊 Total Issues:*\n%d non-compliant items", fm.Count())),
			markdown(fmt.Sprintf("*📅 Report Date:*\n%s", ReportDate(sourceFile))),
			markdown(fmt.Sprintf("*📁 Source File:*\n`%s`", sourceFile)),
			markdown(fmt.Sprintf("*⏰ Alert Time:*\n%s", alertTime.UTC().Format(alertTimeFormat))),
			markdown(fmt.Sprintf("*🏢 Affected Accounts:*\n%d", len(accounts))),
		}, nil),
		slack.NewDividerBlock(),
	}

	if len(groups) > 1 {
		blocks = append(blocks,
			slack.NewSectionBlock(markdown(guardrailSummary(groups)), nil, nil),
			slack.NewDividerBlock(),
		)
	}

	for i, group := range groups {
		if i == MaxGuardrailSections {
			blocks = append(blocks, slack.NewContextBlock("",
				markdown(fmt.Sprintf("📋 *%d additional guardrails not shown above*", len(groups)-MaxGuardrailSections)),
			))
			break
		}
		blocks = append(blocks, slack.NewSectionBlock(markdown(guardrailSection(group)), nil, nil))
	}

	blocks = append(blocks,
		slack.NewDividerBlock(),
		slack.NewContextBlock("", markdown(nextStepsText)),
	)

	return &slack.WebhookMessage{
		Text:   FallbackText(fm.Count()),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func guardrailSummary(groups []findingmgr.GuardrailGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*🎯 Affected Guardrails (%d):*\n", len(groups))
	for i, group := range groups {
		if i == MaxSummaryGuardrails {
			fmt.Fprintf(&b, "• ...and %d more guardrails\n", len(groups)-MaxSummaryGuardrails)
			break
		}
		fmt.Fprintf(&b, "• `%s` (%d issues)\n", group.Name, group.Count)
	}
	return shared.TruncateString(b.String(), MaxSectionLength)
}

func guardrailSection(group findingmgr.GuardrailGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*🛡️ Guardrail:* `%s` (%d issues)\n", group.Name, group.Count)
	for _, control := range group.Controls {
		fmt.Fprintf(&b, "• *Control:* `%s` (%d issues)\n", control.Name, control.Count)
		fmt.Fprintf(&b, "    *Accounts:* %s\n", cappedList(control.AccountIds, MaxAccountsPerControl, nil))
		if len(control.ResourceArns) > 0 {
			fmt.Fprintf(&b, "    *Resources:* %s\n", cappedList(control.ResourceArns, MaxArnsPerControl, ShortenArn))
		}
	}
	return shared.TruncateString(b.String(), MaxSectionLength)
}

// cappedList renders at most limit code formatted values followed by "+N more".
func cappedList(values []string, limit int, transform func(string) string) string {
	shown := values
	if len(shown) > limit {
		shown = shown[:limit]
	}
	items := make([]string, 0, len(shown))
	for _, value := range shown {
		if transform != nil {
			value = transform(value)
		}
		items = append(items, "`"+value+"`")
	}
	text := strings.Join(items, ", ")
	if len(values) > limit {
		text += fmt.Sprintf(" +%d more", len(values)-limit)
	}
	return text
}
