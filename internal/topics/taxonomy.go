// Package topics classifies inbound email into the department taxonomy and
// carries the per-department drafting guidelines.
package topics

// Topic labels. Other is the fallback for anything the classifier cannot place.
const (
	TopicRMA         = "rma"
	TopicCancel      = "cancel"
	TopicChangeRoute = "change route"
	TopicOther       = "other"
)

// Taxonomy maps each label to the description the classifier prompt shows the model.
var Taxonomy = map[string]string{
	TopicRMA:         "Requests involving RMA, associated with rma, replacement order.",
	TopicCancel:      "Requests involving order or line cancelation, associated with order cancellation, order please cancel, cancel line, cancel item.",
	TopicChangeRoute: "Requests involving route change, associated with change route, route change.",
	TopicOther:       "Anything else that does not fit the above categories.",
}

// Valid reports whether the label is part of the taxonomy.
func Valid(label string) bool {
	_, ok := Taxonomy[label]
	return ok
}
