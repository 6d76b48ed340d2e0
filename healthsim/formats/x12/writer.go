// Package x12 renders X12 EDI transactions with ISA/GS/ST envelopes.
package x12

import (
	"fmt"
	"strings"
	"time"
)

// Delimiters used on every rendered interchange.
const (
	SegmentTerminator   = "~"
	ElementSeparator    = "*"
	SubElementSeparator = ":"
	RepetitionSeparator = "^"
)

// Transaction accumulates the segments of one ST/SE transaction set.
type Transaction struct {
	setID    string
	segments []string
}

func NewTransaction(setID string) *Transaction {
	return &Transaction{setID: setID}
}

// Add appends one segment. Trailing empty elements are trimmed.
func (t *Transaction) Add(id string, elements ...string) {
	last := len(elements)
	for last > 0 && elements[last-1] == "" {
		last--
	}
	parts := append([]string{id}, elements[:last]...)
	t.segments = append(t.segments, strings.Join(parts, ElementSeparator))
}

// Builder renders complete interchanges. The zero value uses the
// default trading partner IDs, control number 1 and the current time.
type Builder struct {
	SenderID      string
	ReceiverID    string
	ControlNumber int
	// Now fixes the interchange date and time when non-zero.
	Now time.Time
}

func (b *Builder) senderID() string {
	if b.SenderID == "" {
		return "HEALTHSIM"
	}
	return b.SenderID
}

func (b *Builder) receiverID() string {
	if b.ReceiverID == "" {
		return "RECEIVER"
	}
	return b.ReceiverID
}

func (b *Builder) controlNumber() int {
	if b.ControlNumber == 0 {
		return 1
	}
	return b.ControlNumber
}

func (b *Builder) now() time.Time {
	if b.Now.IsZero() {
		return time.Now()
	}
	return b.Now
}

// Envelope wraps the transactions in ISA/GS...GE/IEA with correct
// trailer counts: SE01 counts the segments of its set including ST and
// SE, GE01 counts transaction sets, IEA01 counts functional groups.
func (b *Builder) Envelope(functionalCode, versionCode string, txns ...*Transaction) string {
	now := b.now()
	icn := fmt.Sprintf("%09d", b.controlNumber())
	gcn := b.controlNumber()

	var sb strings.Builder
	writeSeg := func(s string) {
		sb.WriteString(s)
		sb.WriteString(SegmentTerminator)
		sb.WriteString("\n")
	}

	writeSeg(strings.Join([]string{
		"ISA", "00", strings.Repeat(" ", 10), "00", strings.Repeat(" ", 10),
		"ZZ", pad(b.senderID(), 15), "ZZ", pad(b.receiverID(), 15),
		now.Format("060102"), now.Format("1504"), RepetitionSeparator,
		"00501", icn, "0", "T", SubElementSeparator,
	}, ElementSeparator))

	writeSeg(strings.Join([]string{
		"GS", functionalCode, b.senderID(), b.receiverID(),
		now.Format("20060102"), now.Format("1504"),
		fmt.Sprintf("%d", gcn), "X", versionCode,
	}, ElementSeparator))

	for i, txn := range txns {
		stControl := fmt.Sprintf("%04d", i+1)
		writeSeg(strings.Join([]string{"ST", txn.setID, stControl, versionCode}, ElementSeparator))
		for _, seg := range txn.segments {
			writeSeg(seg)
		}
		// ST and SE are both counted.
		writeSeg(strings.Join([]string{"SE", fmt.Sprintf("%d", len(txn.segments)+2), stControl}, ElementSeparator))
	}

	writeSeg(strings.Join([]string{"GE", fmt.Sprintf("%d", len(txns)), fmt.Sprintf("%d", gcn)}, ElementSeparator))
	writeSeg(strings.Join([]string{"IEA", "1", icn}, ElementSeparator))
	return sb.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Composite joins sub-elements with the : separator.
func Composite(parts ...string) string {
	return strings.Join(parts, SubElementSeparator)
}
