// Package meta reads tag fields described by XML plugins.
//
// A plugin lists named fields of one class with their offsets and types. It
// is the generic, layout-driven view of a tag, as opposed to the typed
// records of the definitions package.
package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOffset parses an offset attribute. Plugins write offsets either in
// decimal or in hexadecimal, with or without a 0x prefix, and do not mark
// which. Decimal is tried first, so "10" is ten and "0x10" or "1C" is hex.
func ParseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 32); err == nil {
		return v, nil
	}
	hex := s
	if len(hex) > 2 && (hex[:2] == "0x" || hex[:2] == "0X") {
		hex = hex[2:]
	}
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("offset %q is neither decimal nor hex", s)
	}
	return v, nil
}
