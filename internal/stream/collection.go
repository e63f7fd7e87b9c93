package stream

import (
	"sort"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

// DefaultCapacity bounds how many messages a collection retains.
const DefaultCapacity = 100

// Order is the sort direction of a collection's message view.
type Order int

const (
	// OrderAscending lists oldest send time first. This is the default.
	OrderAscending Order = iota
	// OrderDescending lists newest send time first.
	OrderDescending
)

type entry struct {
	message domain.Message
	sentAt  int64
	seq     uint64
}

// Collection is a bounded, deduplicated set of received messages kept in send
// order. Because the short poll visibility timeout redelivers messages that
// nobody deleted, the same message ID arrives over and over; the collection
// keeps exactly one entry per ID. When the capacity is exceeded the message
// with the oldest send time is evicted, regardless of the view order.
//
// Not safe for concurrent use. The Consumer owns its collection from a single
// goroutine; callers get copies via Messages.
type Collection struct {
	capacity int
	order    Order
	nextSeq  uint64
	entries  []entry           // ascending by (sentAt, seq)
	seqs     map[string]uint64 // message ID -> arrival sequence
}

func NewCollection(capacity int, order Order) *Collection {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collection{capacity: capacity, order: order, seqs: make(map[string]uint64)}
}

// Add inserts a message, keeping the collection sorted by send timestamp with
// arrival order breaking ties. A redelivery of a known ID keeps its original
// position but carries the latest payload. Returns true if the ID was new.
func (c *Collection) Add(message domain.Message) bool {
	// A missing or unparsable timestamp sorts as zero, i.e. oldest.
	sentAt, _ := message.SentTimestamp()

	if seq, seen := c.seqs[message.MessageID]; seen {
		for i := range c.entries {
			if c.entries[i].seq == seq {
				c.entries[i].message = message
				break
			}
		}
		return false
	}

	c.nextSeq++
	e := entry{message: message, sentAt: sentAt, seq: c.nextSeq}
	c.seqs[message.MessageID] = e.seq

	pos := sort.Search(len(c.entries), func(i int) bool {
		if c.entries[i].sentAt != e.sentAt {
			return c.entries[i].sentAt > e.sentAt
		}
		return c.entries[i].seq > e.seq
	})
	c.entries = append(c.entries, entry{})
	copy(c.entries[pos+1:], c.entries[pos:])
	c.entries[pos] = e

	if len(c.entries) > c.capacity {
		delete(c.seqs, c.entries[0].message.MessageID)
		c.entries = append(c.entries[:0], c.entries[1:]...)
	}
	return true
}

// Messages returns the collection in the configured order.
func (c *Collection) Messages() []domain.Message {
	out := make([]domain.Message, len(c.entries))
	for i := range c.entries {
		if c.order == OrderDescending {
			out[len(out)-1-i] = c.entries[i].message
		} else {
			out[i] = c.entries[i].message
		}
	}
	return out
}

// SetOrder switches the view order. The stored messages are unaffected.
func (c *Collection) SetOrder(order Order) {
	c.order = order
}

func (c *Collection) Len() int { return len(c.entries) }

func (c *Collection) Clear() {
	c.entries = nil
	c.seqs = make(map[string]uint64)
}
