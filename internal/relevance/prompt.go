package relevance

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/goldmine/internal/model"
)

const systemPrompt = `You review social posts and decide which ones describe a problem someone would pay to have solved.

Mark a post as an opportunity when the author, or the people replying, express a concrete need,
a wish for a tool, repeated frustration with existing products, or ask how others solve a task.
Skip memes, news links, announcements, and posts that are only opinions.
Aim to mark at least 3 posts as opportunities when the batch allows it.

Reply with a JSON array only, one object per post you reviewed:
[{"index": <post index>, "isOpportunity": true|false, "relevanceScore": <0.5-1.5>, "intensity": "high"|"medium"|"low"}]
relevanceScore above 1 means a stronger than usual signal, below 1 weaker.`

// maxBodyRunes caps each post body in the prompt.
const maxBodyRunes = 500

func buildPrompt(items []model.CandidateItem) string {
	var b strings.Builder
	b.WriteString("Posts:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "[%d] %s\n", i, item.Title)
		fmt.Fprintf(&b, "    channel=%s upvotes=%d comments=%d\n", item.Channel, item.EngagementScore, item.CommentCount)
		if body := strings.TrimSpace(item.Body); body != "" {
			fmt.Fprintf(&b, "    %s\n", clip(body, maxBodyRunes))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
