// Package fingerprint derives the stable identifiers used to key cached study
// material and assessment history.
package fingerprint

import (
	"strconv"
	"unicode/utf16"
)

// PrefixLength is the number of UTF-16 code units of source content that
// contribute to a fingerprint. Content past the prefix is ignored so that the
// cost of fingerprinting does not grow with document size.
const PrefixLength = 2000

// Fingerprint returns a short base-36 token identifying a content source by its
// title and the leading PrefixLength code units of its content.
//
// The hash is the 32-bit rolling string hash (h = h*31 + c) over the UTF-16
// code units of title followed by the content prefix, rendered over its
// unsigned value. It is stable across processes and platforms; it is not a
// cryptographic digest and collisions only cost a wrong cache hit.
func Fingerprint(title, content string) string {
	var h uint32
	for _, u := range utf16.Encode([]rune(title)) {
		h = h*31 + uint32(u)
	}

	units := utf16.Encode([]rune(content))
	if len(units) > PrefixLength {
		units = units[:PrefixLength]
	}
	for _, u := range units {
		h = h*31 + uint32(u)
	}

	return strconv.FormatUint(uint64(h), 36)
}

// Key returns the composite cache key for a fingerprint and a content kind.
func Key(fp, kind string) string {
	return fp + "_" + kind
}
