package twse

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/traditionalchinese"
)

// ErrUndecodable means the snapshot file could not be decoded with any of the
// supported encodings.
var ErrUndecodable = errors.New("twse: snapshot not decodable in any supported encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeSnapshot converts raw snapshot bytes to UTF-8 text.
//
// TWSE exports have shipped as CP950/Big5, UTF-8, and occasionally Latin-1
// depending on the tool that produced them, so decoders are tried in that
// fixed priority order and the first clean decode wins. CP950 is Big5 plus
// vendor extensions; Go's Big5 codec covers both, so the chain collapses to
// Big5, UTF-8, Latin-1. A decode that produced replacement runes is treated
// as a failure so a UTF-8 file is not mangled by the Big5 attempt.
//
// A UTF-8 byte order mark settles the encoding outright and is handled before
// the Big5 attempt: the BOM's bytes form assigned Big5 pairs, so a BOM-carrying
// file would otherwise decode "cleanly" as mojibake.
func DecodeSnapshot(raw []byte) (string, error) {
	if rest, found := bytes.CutPrefix(raw, utf8BOM); found && utf8.Valid(rest) {
		return string(rest), nil
	}

	if decoded, err := traditionalchinese.Big5.NewDecoder().Bytes(raw); err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded), nil
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}

	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		return string(decoded), nil
	}

	return "", ErrUndecodable
}
