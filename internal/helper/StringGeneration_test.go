//go:build test

package helper

import (
	"testing"

	"github.com/forceu/uploadrelay/internal/test"
)

func TestByteCountSI(t *testing.T) {
	test.IsEqualString(t, ByteCountSI(5), "5 B")
	test.IsEqualString(t, ByteCountSI(5000), "4.9 kB")
	test.IsEqualString(t, ByteCountSI(5000000), "4.8 MB")
	test.IsEqualString(t, ByteCountSI(5000000000), "4.7 GB")
	test.IsEqualString(t, ByteCountSI(5000000000000), "4.5 TB")
}

func TestToMegabytes(t *testing.T) {
	test.IsEqualString(t, ToMegabytes(0), "0.00 MB")
	test.IsEqualString(t, ToMegabytes(1024*1024*3/2), "1.50 MB")
}

func TestGenerateSessionId(t *testing.T) {
	id := GenerateSessionId()
	test.IsEqualInt(t, len(id), SessionIdLength)
	test.IsEqualBool(t, IsValidSessionId(id), true)
	test.IsNotEqualString(t, GenerateSessionId(), id)
}

func TestIsValidSessionId(t *testing.T) {
	test.IsEqualBool(t, IsValidSessionId("0a1b2c3d"), true)
	test.IsEqualBool(t, IsValidSessionId("0A1B2C3D"), false)
	test.IsEqualBool(t, IsValidSessionId("0a1b2c3"), false)
	test.IsEqualBool(t, IsValidSessionId("../../etc"), false)
}

func TestTruncate(t *testing.T) {
	test.IsEqualString(t, Truncate("abc", 5), "abc")
	test.IsEqualString(t, Truncate("abcdef", 3), "abc")
	test.IsEqualString(t, Truncate("äöüß", 2), "äö")
}
