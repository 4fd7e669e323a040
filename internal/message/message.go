// Package message defines the clipscout monitor protocol.
//
// Exactly two message shapes flow over the channel, distinguished by the
// Settings marker field:
//
//   - data message (Settings == nil): Items carries a clipboard bundle.
//     Monitor → manager it is a change report; manager → monitor it is a
//     "set the clipboard now" directive.
//   - settings message (Settings != nil): a sparse configuration update
//     pushed by the manager. Absent fields leave the monitor's current
//     values untouched.
//
// Messages travel as opaque payloads inside wire frames; the encoding here
// is JSON with base64 item payloads.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"go.clipscout.dev/clipscout/internal/bundle"
)

// Settings is the sparse settings payload. Pointer fields distinguish
// "absent" from zero values so each recognized key overwrites only itself.
type Settings struct {
	// LastDigest seeds the monitor's dedup fingerprint. Applied only while
	// the monitor has never observed anything (digest still unset).
	LastDigest *uint64 `json:"last_digest,omitempty"`

	// Formats replaces the tracked MIME type list. Delimiters are semicolons,
	// commas, or whitespace (see bundle.ParseFormats).
	Formats *string `json:"formats,omitempty"`

	CheckClipboard           *bool `json:"check_clipboard,omitempty"`
	SyncClipboardToSelection *bool `json:"sync_clipboard_to_selection,omitempty"`
	SyncSelectionToClipboard *bool `json:"sync_selection_to_clipboard,omitempty"`
	CheckSelection           *bool `json:"check_selection,omitempty"`
}

// Message is the top-level envelope.
type Message struct {
	// ID is a ULID minted by the sender of a change report. The manager uses
	// it as an ordering and dedup key; directives may leave it empty.
	ID string `json:"id,omitempty"`

	// Source identifies the sending monitor (hostname-derived).
	Source string `json:"source,omitempty"`

	// Items is the data bundle of a data message.
	Items bundle.Bundle `json:"items,omitempty"`

	// Settings is the marker field: non-nil makes this a settings message.
	Settings *Settings `json:"settings,omitempty"`
}

// NewReport builds a change report for items, stamped with a fresh ULID.
func NewReport(source string, items bundle.Bundle) *Message {
	return &Message{
		ID:     ulid.Make().String(),
		Source: source,
		Items:  items,
	}
}

// IsSettings reports whether m is a settings message.
func (m *Message) IsSettings() bool { return m.Settings != nil }

// Encode serialises the message to JSON.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// Helpers for building sparse settings values.

// U64 returns a pointer to v.
func U64(v uint64) *uint64 { return &v }

// Str returns a pointer to v.
func Str(v string) *string { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
