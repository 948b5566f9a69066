// Package status holds the fixed availability code table shared by the
// server, the realtime channel and viewers.
package status

import (
	"errors"
	"fmt"
)

// ErrInvalidCode is returned for any integer outside the code table.
var ErrInvalidCode = errors.New("invalid status code")

// Code is a faculty availability state. The integer values and their 3-bit
// encodings are part of the wire contract.
type Code int

const (
	Unavailable Code = 0b000
	Available   Code = 0b001
	Busy        Code = 0b010
	InMeeting   Code = 0b011
	OfficeHours Code = 0b100
	Away        Code = 0b101
	OnlineOnly  Code = 0b110
)

// Info describes one row of the code table.
type Info struct {
	Key     string `json:"key"`
	Code    Code   `json:"code"`
	Binary  string `json:"binary"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

var table = [...]Info{
	Unavailable: {Key: "UNAVAILABLE", Code: Unavailable, Message: "Unavailable", Icon: "⭕"},
	Available:   {Key: "AVAILABLE", Code: Available, Message: "Available for meetings", Icon: "✅"},
	Busy:        {Key: "BUSY", Code: Busy, Message: "Busy — do not disturb", Icon: "🔴"},
	InMeeting:   {Key: "IN_MEETING", Code: InMeeting, Message: "Currently in a meeting", Icon: "📅"},
	OfficeHours: {Key: "OFFICE_HOURS", Code: OfficeHours, Message: "Office hours — students welcome", Icon: "🏢"},
	Away:        {Key: "AWAY", Code: Away, Message: "Away from office", Icon: "🚶"},
	OnlineOnly:  {Key: "ONLINE_ONLY", Code: OnlineOnly, Message: "Available online only", Icon: "💻"},
}

func init() {
	for i := range table {
		table[i].Binary = fmt.Sprintf("%03b", i)
	}
}

// Valid reports whether c is one of the seven codes.
func Valid(c int) bool {
	return c >= 0 && c < len(table)
}

// Parse converts a raw integer into a Code.
func Parse(c int) (Code, error) {
	if !Valid(c) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCode, c)
	}
	return Code(c), nil
}

// Valid reports whether the code is in the table.
func (c Code) Valid() bool {
	return Valid(int(c))
}

// Info returns the table row for the code. Unknown codes get the
// Unavailable row's presentation with an "Unknown status" message.
func (c Code) Info() Info {
	if !c.Valid() {
		return Info{Key: "UNKNOWN", Code: c, Binary: fmt.Sprintf("%b", int(c)), Message: "Unknown status", Icon: table[Unavailable].Icon}
	}
	return table[c]
}

// Message returns the canonical human-readable label.
func (c Code) Message() string { return c.Info().Message }

// Binary returns the fixed 3-bit representation, e.g. "011".
func (c Code) Binary() string { return c.Info().Binary }

// Key returns the upper-case symbolic name.
func (c Code) Key() string { return c.Info().Key }

// Icon returns the badge glyph.
func (c Code) Icon() string { return c.Info().Icon }

func (c Code) String() string { return c.Key() }

// All returns the full table in code order.
func All() []Info {
	out := make([]Info, len(table))
	copy(out, table[:])
	return out
}
