package resp

import (
	"bytes"
	"testing"
)

func TestDecodeSimpleString(t *testing.T) {
	v, n, err := Decode([]byte("+OK\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("consumed = %d, want 5", n)
	}
	if !v.IsStr() || !bytes.Equal(v.Str, []byte("OK")) {
		t.Fatalf("got %+v", v)
	}
}

func TestDecodeBulkString(t *testing.T) {
	v, n, err := Decode([]byte("$5\r\nhello\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 11 {
		t.Fatalf("consumed = %d, want 11", n)
	}
	if !bytes.Equal(v.Str, []byte("hello")) {
		t.Fatalf("got %q", v.Str)
	}
}

func TestDecodeZeroLengthBulkString(t *testing.T) {
	v, n, err := Decode([]byte("$0\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Fatalf("consumed = %d, want 6", n)
	}
	if len(v.Str) != 0 {
		t.Fatalf("want empty string, got %q", v.Str)
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	v, n, err := Decode([]byte("*0\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Fatalf("consumed = %d, want 4", n)
	}
	if !v.IsArr() || len(v.Arr) != 0 {
		t.Fatalf("got %+v", v)
	}
}

func TestDecodeNestedArray(t *testing.T) {
	raw := "*2\r\n$4\r\nECHO\r\n$5\r\nhello\r\n"
	v, n, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed = %d, want %d", n, len(raw))
	}
	if !v.IsArr() || len(v.Arr) != 2 {
		t.Fatalf("got %+v", v)
	}
	if !bytes.Equal(v.Arr[0].Str, []byte("ECHO")) {
		t.Fatalf("first elem = %q", v.Arr[0].Str)
	}
	if !bytes.Equal(v.Arr[1].Str, []byte("hello")) {
		t.Fatalf("second elem = %q", v.Arr[1].Str)
	}
}

func TestDecodeTruncatedFrameReportsIncomplete(t *testing.T) {
	cases := [][]byte{
		[]byte("*2\r\n$4\r\nECHO"),
		[]byte("$5\r\nhel"),
		[]byte("*2\r\n"),
		[]byte("+OK"),
	}
	for _, c := range cases {
		_, n, err := Decode(c)
		if err != ErrIncomplete {
			t.Fatalf("Decode(%q) err = %v, want ErrIncomplete", c, err)
		}
		if n != 0 {
			t.Fatalf("Decode(%q) consumed = %d, want 0", c, n)
		}
	}
}

func TestDecodeMalformedPrefix(t *testing.T) {
	_, _, err := Decode([]byte("!nope\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestDecodeMalformedLength(t *testing.T) {
	_, _, err := Decode([]byte("$abc\r\nhello\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestRoundTripBulkArray(t *testing.T) {
	encoded := BulkArray([][]byte{[]byte("foo"), []byte("bar")})
	v, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed = %d, want %d", n, len(encoded))
	}
	if !v.IsArr() || len(v.Arr) != 2 {
		t.Fatalf("got %+v", v)
	}
	if !bytes.Equal(v.Arr[0].Str, []byte("foo")) || !bytes.Equal(v.Arr[1].Str, []byte("bar")) {
		t.Fatalf("got %+v", v.Arr)
	}
}

func TestMultipleFramesInOneBuffer(t *testing.T) {
	raw := []byte("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n")
	v1, n1, err := Decode(raw)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	v2, n2, err := Decode(raw[n1:])
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if !v1.IsArr() || !v2.IsArr() {
		t.Fatalf("expected two arrays, got %+v and %+v", v1, v2)
	}
	if n1+n2 != len(raw) {
		t.Fatalf("consumed %d+%d, want %d", n1, n2, len(raw))
	}
}
