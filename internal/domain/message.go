package domain

import (
	"context"
	"strconv"
	"time"
)

// AttrSentTimestamp is the SQS system attribute carrying the epoch-millisecond
// send time of a message. It is the sort key for the client-side view.
const AttrSentTimestamp = "SentTimestamp"

// Message is a single delivery from a queue. MessageID is unique per queue;
// ReceiptHandle identifies this particular delivery and is required to delete
// the message. ReceivedAt is assigned by whoever pulled the message and is
// informational only.
type Message struct {
	MessageID         string                      `json:"messageId"`
	ReceiptHandle     string                      `json:"receiptHandle"`
	Body              string                      `json:"body"`
	Attributes        map[string]string           `json:"attributes,omitempty"`
	MessageAttributes map[string]MessageAttribute `json:"messageAttributes,omitempty"`
	ReceivedAt        time.Time                   `json:"receivedAt,omitempty"`
}

// MessageAttribute is a user-supplied typed attribute on a message.
type MessageAttribute struct {
	DataType    string `json:"dataType"`
	StringValue string `json:"stringValue,omitempty"`
}

// SentTimestamp returns the epoch-millisecond send time from the message's
// system attributes. The second return is false when the attribute is absent
// or unparseable.
func (m Message) SentTimestamp() (int64, bool) {
	raw, ok := m.Attributes[AttrSentTimestamp]
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// StreamEvent is the wire format of the per-queue WebSocket stream.
// Exactly one of Message or Error is set: Message for a delivery, Error for
// a connection-level poll failure on the server side.
type StreamEvent struct {
	Queue   string   `json:"queue"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ReceiveParams tunes a single long-poll receive call.
type ReceiveParams struct {
	WaitTimeSeconds     int32
	VisibilityTimeout   int32
	MaxNumberOfMessages int32
}

// SendResult is the outcome of sending a message.
type SendResult struct {
	MessageID      string `json:"messageId"`
	MD5OfBody      string `json:"md5OfMessageBody"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
}

// MessageReceiver is the slice of QueueStore the broadcast poller needs.
type MessageReceiver interface {
	ReceiveMessages(ctx context.Context, queue string, p ReceiveParams) ([]Message, error)
}
