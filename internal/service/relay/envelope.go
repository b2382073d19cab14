package relay

import (
	"html"
	"strings"
)

const (
	envelopeOpen  = "<Message>"
	envelopeClose = "</Message>"
)

// Reply is the outcome of reading a responder body: either the contents of a
// <Message> envelope or the body passed through untouched.
type Reply struct {
	Text      string
	Enveloped bool
}

// ExtractReply pulls the reply text out of a responder body. When the body
// carries a <Message> envelope the text runs from the first opening marker to
// the first closing marker after it (or to the end of the body when no closing
// marker follows). XML entities inside an envelope are decoded. A body without
// an envelope is returned as is.
func ExtractReply(body string) Reply {
	start := strings.Index(body, envelopeOpen)
	if start < 0 {
		return Reply{Text: body}
	}

	inner := body[start+len(envelopeOpen):]
	if end := strings.Index(inner, envelopeClose); end >= 0 {
		inner = inner[:end]
	}
	return Reply{Text: html.UnescapeString(inner), Enveloped: true}
}
