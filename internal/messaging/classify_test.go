package messaging

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		body string
		want Reply
	}{
		{"YES", ReplyApproval},
		{"yes", ReplyApproval},
		{"  Yes!  ", ReplyApproval},
		{"y", ReplyApproval},
		{"yeah sounds good", ReplyApproval},
		{"ok", ReplyApproval},
		{"sure, go ahead", ReplyApproval},

		{"NO", ReplyRejection},
		{"no thanks", ReplyRejection},
		{"nope", ReplyRejection},
		{"please cancel", ReplyRejection},
		{"remove it", ReplyRejection},
		{"skip that one", ReplyRejection},

		{"", ReplyUnrecognized},
		{"what time do you close?", ReplyUnrecognized},
		{"maybe", ReplyUnrecognized},
		// Keywords embedded in longer words do not fire.
		{"I know the one you mean", ReplyUnrecognized},
		{"annoyed about this", ReplyUnrecognized},
	}
	for _, tc := range cases {
		if got := Classify(tc.body); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.body, got, tc.want)
		}
	}
}

func TestClassifyApprovalWinsOverRejection(t *testing.T) {
	// Mixed signals resolve to approval; approval words are checked first.
	if got := Classify("yes, no problem"); got != ReplyApproval {
		t.Errorf("Classify = %s, want approval", got)
	}
}
