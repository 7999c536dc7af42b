package openai

import (
	"strings"

	"github.com/poiesic/merchantdesk/core"
	"github.com/tmc/langchaingo/llms"
)

// buildMessageContent converts the system prompt and conversation into langchaingo messages.
// Blank turns are dropped.
func buildMessageContent(systemPrompt string, messages []core.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages)+1)
	if prompt := scrubString(systemPrompt); prompt != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, prompt))
	}
	for _, msg := range messages {
		text := scrubString(msg.Content)
		if text == "" {
			continue
		}
		content = append(content, llms.TextParts(chatMessageType(msg.Role), text))
	}
	return content
}

// chatMessageType maps a conversation role onto the langchaingo message type.
func chatMessageType(role core.Role) llms.ChatMessageType {
	switch role {
	case core.RoleAssistant:
		return llms.ChatMessageTypeAI
	case core.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// scrubString removes NUL and other control characters (except newlines and tabs)
// and trims whitespace.
func scrubString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
