// Package bundle defines the mime-typed data bundle that moves between the
// platform clipboard, the monitor engine, and the manager protocol, plus the
// pure filtering and fingerprinting helpers the engine's change detection is
// built on.
package bundle

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Item is a single clipboard representation with a MIME type.
// Data marshals as base64 in JSON, so binary payloads are wire-safe.
type Item struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// Bundle is an ordered set of items, one per MIME type. Order is preserved
// through filtering so results stay deterministic; MIME keys are unique.
type Bundle []Item

// NewText returns a bundle holding a single text/plain item.
func NewText(text string) Bundle {
	return Bundle{{MIME: "text/plain", Data: []byte(text)}}
}

// Get returns the payload for mime and whether it is present.
func (b Bundle) Get(mime string) ([]byte, bool) {
	for _, it := range b {
		if it.MIME == mime {
			return it.Data, true
		}
	}
	return nil, false
}

// MIMEs returns the bundle's MIME types in bundle order.
func (b Bundle) MIMEs() []string {
	out := make([]string, len(b))
	for i, it := range b {
		out[i] = it.MIME
	}
	return out
}

// Clone returns a deep copy. Bundles are single-owner; clone before handing
// one to another holder.
func (b Bundle) Clone() Bundle {
	if b == nil {
		return nil
	}
	out := make(Bundle, len(b))
	for i, it := range b {
		out[i] = Item{MIME: it.MIME, Data: bytes.Clone(it.Data)}
	}
	return out
}

// Equal reports whether two bundles carry the same items in the same order.
func (b Bundle) Equal(other Bundle) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i].MIME != other[i].MIME || !bytes.Equal(b[i].Data, other[i].Data) {
			return false
		}
	}
	return true
}

// Filter returns a copy of b reduced to the items whose MIME type appears in
// formats. An empty formats list keeps everything. Relative order of the kept
// items equals their order in b.
func Filter(b Bundle, formats []string) Bundle {
	if len(formats) == 0 {
		return b.Clone()
	}
	keep := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		keep[f] = struct{}{}
	}
	var out Bundle
	for _, it := range b {
		if _, ok := keep[it.MIME]; ok {
			out = append(out, Item{MIME: it.MIME, Data: bytes.Clone(it.Data)})
		}
	}
	return out
}

// EmptyDigest is the fixed digest of "no data". It doubles as the engine's
// "never seen anything" sentinel.
const EmptyDigest uint64 = 0

// Digest fingerprints b restricted to formats (all present types when formats
// is empty). MIME types are folded in lexicographic order so the result does
// not depend on bundle or format-list ordering. Items outside formats never
// influence the digest; an empty bundle or empty intersection yields
// EmptyDigest.
func Digest(b Bundle, formats []string) uint64 {
	mimes := formats
	if len(mimes) == 0 {
		mimes = b.MIMEs()
	} else {
		mimes = append([]string(nil), mimes...)
	}
	sort.Strings(mimes)

	h := xxhash.New()
	n := 0
	for i, mime := range mimes {
		if i > 0 && mime == mimes[i-1] {
			continue
		}
		data, ok := b.Get(mime)
		if !ok {
			continue
		}
		_, _ = h.WriteString(mime)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
		n++
	}
	if n == 0 {
		return EmptyDigest
	}
	return h.Sum64()
}

var formatSplit = regexp.MustCompile(`[;,\s]+`)

// ParseFormats splits a delimiter-separated MIME type list into its entries.
// Semicolons, commas, and whitespace all delimit; runs collapse. Returns nil
// for a list with no entries.
func ParseFormats(list string) []string {
	var out []string
	for _, f := range formatSplit.Split(list, -1) {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
