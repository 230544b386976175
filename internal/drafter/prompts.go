package drafter

import "encoding/json"

const writingInstructions = `You are %s's executive assistant. You are a top-notch executive assistant who cares about %s performing as well as possible.

%s gets lots of emails. This has been determined to be an email that is worth %s responding to.

Your job is to help %s respond. You can do this in a few ways.

# Using the Question tool

First, get all required information to respond. You can use the Question tool to ask %s for information if you do not know it.

Do not put placeholders for names or emails or information - get that directly from %s! Never just make things up.

# Using the ResponseEmailDraft tool

If you have enough information to respond, you can draft an email for %s. Use the ResponseEmailDraft tool for this.

ALWAYS draft emails as if they are coming from %s. Never draft them as "%s's assistant" or someone else.

When adding new recipients - only do that if %s explicitly asks for it and you know their emails. Do NOT make up emails.

%s

# Using the NewEmailDraft tool

Sometimes you will need to start a new email thread. If you have all the necessary information for this, use the NewEmailDraft tool.

# Background information: information you may find helpful when responding to emails or deciding what to do.

%s`

const departmentSection = `# Department guidelines for this topic

%s`

const draftPrompt = `%s

Remember to call a tool correctly! Use the specified names exactly. Pass all required arguments.

Here is the email thread. Note that this is the full email thread. Pay special attention to the most recent email.

%s`

const emailTemplate = `From: %s
To: %s
Subject: %s

%s`

// retryNudge is appended when the model returns anything other than exactly
// one tool call.
const retryNudge = "Please call a valid tool call."

// Default preference blobs, written back to the store on first read.
const (
	defaultBackground = `The assistant supports a sales support mailbox. Typical requests concern sales orders, RMAs, cancellations, and transport routes. When a reference number (SO / RMA / Item / Batch) is mentioned, always carry it into the draft.`

	defaultStyle = `Professional and concise. Always in English. Short sentences, no filler. Acknowledge the request in the first line. Ask for any missing reference numbers explicitly rather than guessing.`
)

// Preference kinds stored per assistant namespace.
const (
	PrefBackground = "background"
	PrefStyle      = "style"
)

func schema(raw string) json.RawMessage {
	return json.RawMessage(raw)
}

var toolNewEmailDraft = schema(`{
	"type": "object",
	"properties": {
		"content": {"type": "string", "description": "Full body of the new email"},
		"recipients": {"type": "array", "items": {"type": "string"}, "description": "Email addresses to send to. Do NOT make any emails up!"}
	},
	"required": ["content", "recipients"]
}`)

var toolResponseEmailDraft = schema(`{
	"type": "object",
	"properties": {
		"content": {"type": "string", "description": "Full body of the reply"},
		"new_recipients": {"type": "array", "items": {"type": "string"}, "description": "Additional recipients not already on the thread"}
	},
	"required": ["content", "new_recipients"]
}`)

var toolQuestion = schema(`{
	"type": "object",
	"properties": {
		"content": {"type": "string", "description": "The question to ask"}
	},
	"required": ["content"]
}`)

var toolIgnore = schema(`{
	"type": "object",
	"properties": {
		"ignore": {"type": "boolean"}
	},
	"required": ["ignore"]
}`)
