package messaging

import "strings"

// Reply is the classification of an inbound customer message.
type Reply int

const (
	ReplyUnrecognized Reply = iota
	ReplyApproval
	ReplyRejection
)

func (r Reply) String() string {
	switch r {
	case ReplyApproval:
		return "approval"
	case ReplyRejection:
		return "rejection"
	}
	return "unrecognized"
}

// The keyword vocabularies customers actually use. Matching is on whole
// words so "no" does not fire inside "know".
var (
	approvalWords  = []string{"yes", "y", "yeah", "yep", "confirm", "ok", "okay", "approve", "accept", "sure"}
	rejectionWords = []string{"no", "n", "nope", "cancel", "decline", "reject", "remove", "skip"}
)

// Classify performs pure keyword classification of an inbound SMS body.
// No external calls.
func Classify(body string) Reply {
	tokens := tokenize(body)
	if containsAny(tokens, approvalWords) {
		return ReplyApproval
	}
	if containsAny(tokens, rejectionWords) {
		return ReplyRejection
	}
	return ReplyUnrecognized
}

func tokenize(body string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func containsAny(tokens map[string]bool, words []string) bool {
	for _, w := range words {
		if tokens[w] {
			return true
		}
	}
	return false
}
