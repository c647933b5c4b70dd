package rdb

import "unicode/utf8"

// isValidUTF8 uses the standard library's validator directly: UTF-8
// validation is a single well-defined pass with no meaningful alternative
// implementation in the example corpus (the Rust original relies on its
// standard library's equivalent, String::from_utf8).
func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}
