package chat

import (
	"strings"
	"unicode/utf8"
)

// textDecoder turns a byte stream into text incrementally. A rune split
// across chunks is held back until its remaining bytes arrive, so the
// concatenated output never depends on where the chunks were cut.
type textDecoder struct {
	pending []byte
}

// Decode returns the text for every complete rune in pending+chunk.
func (d *textDecoder) Decode(chunk []byte) string {
	buf := append(d.pending, chunk...)

	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i > len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	out := decodeBytes(buf[:cut])
	d.pending = append([]byte(nil), buf[cut:]...)
	return out
}

// Flush returns whatever is still held back. An incomplete rune at end of
// stream decodes to replacement characters.
func (d *textDecoder) Flush() string {
	out := decodeBytes(d.pending)
	d.pending = nil
	return out
}

// decodeBytes maps every invalid byte to U+FFFD.
func decodeBytes(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}
