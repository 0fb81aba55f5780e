package wspulse

import "fmt"

// Message is one application-level payload crossing the session: a format tag
// plus the encoded bytes. Received messages carry FormatUnknown since the
// wire does not tag the encoding; the caller knows the agreed format.
type Message struct {
	Format  PayloadFormat
	Payload []byte
}

// EncodeMessage serializes v under the given format.
func EncodeMessage(v any, format PayloadFormat) (Message, error) {
	bts, err := Marshal(v, format)
	if err != nil {
		return Message{}, err
	}
	return Message{Format: format, Payload: bts}, nil
}

// Decode deserializes the payload into v using the message's own format tag.
func (m Message) Decode(v any) error {
	return Unmarshal(m.Payload, v, m.Format)
}

// DecodeAs deserializes the payload into v under an explicit format,
// for messages received without a tag.
func (m Message) DecodeAs(v any, format PayloadFormat) error {
	return Unmarshal(m.Payload, v, format)
}

func (m Message) String() string {
	return fmt.Sprintf("Message{format=%s,payload=%d bytes}", m.Format, len(m.Payload))
}
