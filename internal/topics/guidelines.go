package topics

const rmaGuidelines = `Subject:
  - Must include a reference number (SO / RMA / Item / Batch).
  - Format example: "SO 31202516 - Fittings - Expected picking error".

Body:
  - Confirm whether the issue concerns Fittings or Steel.
  - Acknowledge the reported problem or request.
  - Ask clearly for any missing details (SO #, Item #, Batch #, quantity, photos).
  - If quantity mismatch: ask how many colli were signed for, and what was received.
  - If the issue is "too much" material: confirm Sales has been contacted about traceability.
  - Ask for attachments or screenshots if needed; be specific.
  - Always communicate in English.`

const cancelGuidelines = `Subject:
  - Format: "<SO number> - <Order/Line Cancel> - <Reason>"
    e.g. "31548564 - Cancel Order - Wrong items".

Body:
  - If the request clearly states that the entire order should be cancelled, acknowledge and confirm the cancellation. Do not ask about line-level details.
  - Only request additional details (Item #, dimensions, etc.) if the message clearly refers to cancelling specific lines.
  - Never include fallback language or clarifications if the full order cancellation is unambiguous.
  - Keep language professional and concise.`

const changeRouteGuidelines = `Subject:
  - Format: "<SO number> - Route <##> - <Reason>"
    e.g. "31548564 - Route 50 - Missing colli".

Body:
  - State the Sales Order number and route number.
  - Clearly describe the issue (delay, missing colli, damage, etc.).
  - If missing material: list Item #, dimensions, charge, quantity, colli #.
  - Keep language professional and concise.`

var guidelineRegistry = map[string]string{
	TopicRMA:         rmaGuidelines,
	TopicCancel:      cancelGuidelines,
	TopicChangeRoute: changeRouteGuidelines,
}

// Guidelines returns the department drafting guidelines for a topic, or ""
// when no department owns the topic (the "other" bucket).
func Guidelines(topic string) string {
	return guidelineRegistry[topic]
}
