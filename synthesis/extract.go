package synthesis

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/merchantdesk/core"
)

const (
	// MaxActionItems caps extracted action items.
	MaxActionItems = 5
	// MaxFollowups caps extracted follow-up tasks.
	MaxFollowups = 3

	maxTaskLength = 200

	defaultTimeframe = "as needed"
)

// Extractor pulls structured tasks out of generated text.
type Extractor interface {
	ActionItems(text string) []core.ActionItem
	Followups(text string) []core.FollowupTask
}

type keywordRule[T any] struct {
	pattern *regexp.Regexp
	value   T
}

var (
	sentenceSplitRE = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
	listMarkerRE    = regexp.MustCompile(`^\s*(?:(?:[-*•]|\d+[.)]|\[[ xX]?\])\s*)+`)

	actionRE = regexp.MustCompile(`(?i)\b(?:must|should|need(?:s)? to|make sure|ensure|be sure to|remember to|don't forget to|action item|to-?do)\b` +
		`|^(?i:call|email|send|schedule|prepare|submit|review|update|contact|reach out|set up|complete|gather|request|collect|confirm|verify)\b`)
	followupRE = regexp.MustCompile(`(?i)\b(?:follow[- ]?up|check (?:in|back)|circle back|touch base|reach back out|reconnect|revisit)\b`)

	assigneeRE = regexp.MustCompile(`(?:\b[Aa]ssign(?:ed)? to|\b[Aa]ssignee:|\b[Oo]wner:|\b[Aa]sk)\s+([A-Z][\w.'-]*(?:\s+[A-Z][\w.'-]*)?)`)
	dueDateRE  = regexp.MustCompile(`(?i)\b(?:by|before|due|on|until)\s+(?:the\s+)?(` +
		`(?:next\s+|this\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|week|month)` +
		`|tomorrow|today|tonight|eod|eow|end of (?:the\s+)?(?:day|week|month|quarter)` +
		`|\d{1,2}/\d{1,2}(?:/\d{2,4})?` +
		`|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?` +
		`)\b`)
	timeframeRE = regexp.MustCompile(`(?i)\b(?:(?:in|within|after)\s+(?:a|an|one|two|three|four|five|six|seven|\d+)\s+(?:business\s+)?(?:hours?|days?|weeks?|months?)` +
		`|tomorrow|today|next\s+(?:week|month|monday|tuesday|wednesday|thursday|friday)` +
		`|(?:later\s+)?this\s+(?:week|afternoon|month)` +
		`|end of (?:the\s+)?(?:day|week|month))\b`)

	priorityRules = []keywordRule[core.Priority]{
		{regexp.MustCompile(`(?i)\b(?:urgent|urgently|asap|immediately|high priority|critical|right away|today)\b`), core.PriorityHigh},
		{regexp.MustCompile(`(?i)\b(?:low priority|when possible|eventually|no rush|whenever|optional)\b`), core.PriorityLow},
	}
	categoryRules = []keywordRule[core.Category]{
		{regexp.MustCompile(`(?i)\b(?:schedule|meeting|appointment|calendar|book|demo)\b`), core.CategoryScheduling},
		{regexp.MustCompile(`(?i)\b(?:call|email|contact|reach out|client|merchant|customer|owner|follow up with)\b`), core.CategoryClientCommunication},
		{regexp.MustCompile(`(?i)\b(?:document|documents|form|application|paperwork|statement|statements|contract|agreement|pdf|sign)\b`), core.CategoryDocumentation},
		{regexp.MustCompile(`(?i)\b(?:submit|review|update|underwriting|approve|approval|internal|team|manager|crm)\b`), core.CategoryInternalProcess},
	}
	followupTypeRules = []keywordRule[core.FollowupType]{
		{regexp.MustCompile(`(?i)\b(?:call|phone|ring)\b`), core.FollowupCall},
		{regexp.MustCompile(`(?i)\b(?:email|e-mail|send|write)\b`), core.FollowupEmail},
		{regexp.MustCompile(`(?i)\b(?:meet|meeting|demo|visit|appointment)\b`), core.FollowupMeeting},
		{regexp.MustCompile(`(?i)\b(?:document|proposal|contract|application|statement|paperwork|form)\b`), core.FollowupDocument},
	}
)

// RegexExtractor extracts tasks with keyword patterns.
type RegexExtractor struct {
	MaxActionItems int
	MaxFollowups   int
}

var _ Extractor = (*RegexExtractor)(nil)

// NewRegexExtractor returns an extractor with the default caps.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{MaxActionItems: MaxActionItems, MaxFollowups: MaxFollowups}
}

// ActionItems returns sentences that ask for something to be done.
// Priority comes from urgency keywords, category from task verbs.
func (x *RegexExtractor) ActionItems(text string) []core.ActionItem {
	var items []core.ActionItem
	seen := make(map[string]bool)
	for _, sentence := range sentences(text) {
		if len(items) >= x.MaxActionItems {
			break
		}
		if !actionRE.MatchString(sentence) {
			continue
		}
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true

		item := core.ActionItem{
			Task:     truncateTask(sentence),
			Priority: firstRule(priorityRules, sentence, core.PriorityMedium),
			Category: firstRule(categoryRules, sentence, core.CategoryGeneral),
		}
		if m := assigneeRE.FindStringSubmatch(sentence); m != nil {
			item.Assignee = m[1]
		}
		if m := dueDateRE.FindStringSubmatch(sentence); m != nil {
			item.DueDate = m[1]
		}
		items = append(items, item)
	}
	return items
}

// Followups returns sentences that schedule a later touchpoint.
// Type comes from verbs, timeframe from relative-date phrases.
func (x *RegexExtractor) Followups(text string) []core.FollowupTask {
	var tasks []core.FollowupTask
	seen := make(map[string]bool)
	for _, sentence := range sentences(text) {
		if len(tasks) >= x.MaxFollowups {
			break
		}
		if !followupRE.MatchString(sentence) {
			continue
		}
		key := strings.ToLower(sentence)
		if seen[key] {
			continue
		}
		seen[key] = true

		timeframe := defaultTimeframe
		if m := timeframeRE.FindString(sentence); m != "" {
			timeframe = m
		}
		tasks = append(tasks, core.FollowupTask{
			Task:      truncateTask(sentence),
			Timeframe: timeframe,
			Type:      firstRule(followupTypeRules, sentence, core.FollowupOther),
		})
	}
	return tasks
}

// sentences splits text into trimmed sentences with list markers removed.
func sentences(text string) []string {
	var out []string
	for _, part := range sentenceSplitRE.Split(text, -1) {
		part = listMarkerRE.ReplaceAllString(part, "")
		part = strings.Trim(strings.TrimSpace(part), "*_#> ")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstRule[T any](rules []keywordRule[T], text string, fallback T) T {
	for _, rule := range rules {
		if rule.pattern.MatchString(text) {
			return rule.value
		}
	}
	return fallback
}

func truncateTask(task string) string {
	if utf8.RuneCountInString(task) <= maxTaskLength {
		return task
	}
	return core.Snippet(task, maxTaskLength)
}
