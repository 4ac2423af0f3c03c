package pipeline

import "regexp"

// EventSentence is the event kind emitted by the sentence-buffered variant
// of the delta stream.
const EventSentence EventType = "sentence"

// sentenceBoundary matches a sentence terminator followed by whitespace;
// the leading sentence (including the terminator) is flushed once matched.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// SentencePayload has the JSON shape of one flushed sentence. Sentence
// events built by BufferSentences carry their text in Event.Delta, not in
// this type.
type SentencePayload struct {
	Content string `json:"content"`
}

func sentenceEvent(content string) Event {
	return Event{Type: EventSentence, Delta: &DeltaPayload{Content: content}}
}

// BufferSentences wraps a raw event stream, accumulating delta tokens and
// re-emitting them as whole-sentence events whenever sentenceBoundary
// matches the buffer. sources/done/error flush any residual buffer before
// passing through unchanged.
func BufferSentences(in <-chan Event) <-chan Event {
	out := make(chan Event, 8)

	go func() {
		defer close(out)
		var buf string

		flush := func() {
			if buf != "" {
				out <- sentenceEvent(buf)
				buf = ""
			}
		}

		for e := range in {
			switch e.Type {
			case EventDelta:
				buf += e.Delta.Content
				for {
					loc := sentenceBoundary.FindStringIndex(buf)
					if loc == nil {
						break
					}
					out <- sentenceEvent(buf[:loc[1]])
					buf = buf[loc[1]:]
				}
			case EventSources, EventDone, EventError:
				flush()
				out <- e
			default:
				out <- e
			}
		}
		flush()
	}()

	return out
}
