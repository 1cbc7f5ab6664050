// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

// The functions in this file are the wire primitives. They keep no state
// and report the number of bytes written or consumed. Writers check for
// room before touching buf, readers treat len(buf) as the end of data.
// All integers are big-endian.

// PutUint16 stores v at buf[off:off+2]. Values above 0xffff wrap modulo 0x10000.
func PutUint16(buf []byte, off int, v int) (int, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, overflow(2, avail(buf, off))
	}
	buf[off] = byte(v >> 8)
	buf[off+1] = byte(v)
	return 2, nil
}

// Uint16 returns the 16-bit value stored at buf[off:off+2].
func Uint16(buf []byte, off int) (int, error) {
	if off < 0 || off+2 > len(buf) {
		return 0, malformed("short read at %d, need 2 bytes, have %d", off, avail(buf, off))
	}
	return int(buf[off])<<8 | int(buf[off+1]), nil
}

// PutBytes stores p as a 2-byte length, the bytes and a trailing NUL.
// A nil or empty p stores a zero length and the NUL.
func PutBytes(buf []byte, off int, p []byte) (int, error) {
	need := len(p) + 3
	if off < 0 || off+need > len(buf) {
		return 0, overflow(need, avail(buf, off))
	}
	PutUint16(buf, off, len(p))
	copy(buf[off+2:], p)
	buf[off+2+len(p)] = 0
	return need, nil
}

// PutString is PutBytes for a string.
func PutString(buf []byte, off int, s string) (int, error) {
	need := len(s) + 3
	if off < 0 || off+need > len(buf) {
		return 0, overflow(need, avail(buf, off))
	}
	PutUint16(buf, off, len(s))
	copy(buf[off+2:], s)
	buf[off+2+len(s)] = 0
	return need, nil
}

// Bytes returns the byte string stored at buf[off:] by PutBytes, as a
// slice of buf, and the number of bytes consumed including the NUL.
// A NullStringLength length returns nil and consumes only the length.
func Bytes(buf []byte, off int) ([]byte, int, error) {
	n, err := Uint16(buf, off)
	if err != nil {
		return nil, 0, err
	}
	if n == NullStringLength {
		return nil, 2, nil
	}
	if off+2+n+1 > len(buf) {
		return nil, 0, malformed("string of %d bytes at %d extends past end of data (%d)", n, off, len(buf))
	}
	return buf[off+2 : off+2+n], n + 3, nil
}

// String is Bytes returning a string.
func String(buf []byte, off int) (string, int, error) {
	p, n, err := Bytes(buf, off)
	return string(p), n, err
}

// PutBool stores b as a single 0 or 1 byte.
func PutBool(buf []byte, off int, b bool) (int, error) {
	if off < 0 || off+1 > len(buf) {
		return 0, overflow(1, avail(buf, off))
	}
	buf[off] = 0
	if b {
		buf[off] = 1
	}
	return 1, nil
}

// Bool returns true if the byte at buf[off] is nonzero.
func Bool(buf []byte, off int) (bool, error) {
	if off < 0 || off >= len(buf) {
		return false, malformed("short read at %d, need 1 byte", off)
	}
	return buf[off] != 0, nil
}

func avail(buf []byte, off int) int {
	if off < 0 || off > len(buf) {
		return 0
	}
	return len(buf) - off
}
