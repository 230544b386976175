package mail

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// signaturePattern matches common sign-off phrases across the languages seen
// in the source mailboxes. Everything from the first match onward is dropped.
var signaturePattern = regexp.MustCompile(
	`(?i)\b(?:best regards|kind regards|sincerely|yours truly|yours faithfully|` +
		`med venlig hilsen|vennlig hilsen|met venlig hilsen|met vriendelijke groet|vriendelijke groet|groeten,)\b`,
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// skippedTags are stripped wholesale: scripts, styles, images, and the quoted
// history tables Outlook embeds.
var skippedTags = map[string]bool{
	"script": true,
	"style":  true,
	"img":    true,
	"table":  true,
	"head":   true,
}

// CleanBody converts a raw HTML email body into normalized plain text:
// visible text only, collapsed whitespace, signature block removed.
func CleanBody(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	text := htmlToText(rawHTML)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = StripSignature(strings.TrimSpace(text))
	return strings.TrimSpace(text)
}

// StripSignature removes a trailing signature block, if one is found.
func StripSignature(text string) string {
	if loc := signaturePattern.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]])
	}
	return text
}

func htmlToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// Malformed markup: fall back to the raw content rather than dropping the email.
		return raw
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}
