// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

/*

Message is a fixed-capacity packet buffer with a read/write cursor.

A packet is a 4-byte header followed by the payload. The header holds the
direction marker (0x1234 from the web server, 0x4142 from the container)
and the big-endian payload length, which counts every byte after the header.
Except for request body data, the first payload byte is the PrefixCode,
whose high bit is the SecureFlag.

Writing: Reset, a sequence of Add calls, End. Reading: ReadFrom (or load
raw bytes and SetDirection), then Get calls in the order the peer wrote the
fields. Nothing in a packet describes its own layout.

A Message is not safe for concurrent use.

*/
type Message struct {
	buf     []byte // len(buf) is the capacity
	pos     int    // cursor
	end     int    // end of the used region, header included
	dir     Direction
	code    PrefixCode // written at SecureOffset by Reset, 0 for data messages
	prefix  int        // where Reset leaves the cursor
	fixed   bool       // content set at construction, Reset and End do nothing
	raw     bool       // request body data, no prefix code byte
	markPos int
	count   int
}

// NewMessage allocates a Message without a prefix code, as used for
// request body data and for receiving. The size is rounded up to
// PacketAlign and capped at MaxPacketSize, DefaultPacketSize if size <= 0.
func NewMessage(dir Direction, size int) *Message {
	m := &Message{}
	m.init(dir, size, 0, PacketHeaderSize)
	return m
}

func (m *Message) init(dir Direction, size int, code PrefixCode, prefix int) {
	m.buf = make([]byte, packetSize(size))
	m.dir = dir
	m.code = code
	m.prefix = prefix
	m.Reset()
}

// newFixed returns a Message holding a copy of template, with Reset and End disabled.
func newFixed(template []byte) *Message {
	m := &Message{
		buf:    make([]byte, packetSize(len(template))),
		dir:    Direction(uint16(template[0])<<8 | uint16(template[1])),
		code:   PrefixCode(template[SecureOffset]),
		prefix: len(template),
		end:    len(template),
		pos:    len(template),
		fixed:  true,
	}
	copy(m.buf, template)
	return m
}

func (m *Message) String() string {
	if m == nil {
		return "[Message nil]"
	}
	var contents string
	if m.end > 32 {
		contents = hex.EncodeToString(m.buf[PacketHeaderSize:32]) + "..."
	} else if m.end > PacketHeaderSize {
		contents = hex.EncodeToString(m.buf[PacketHeaderSize:m.end])
	}
	return fmt.Sprintf("[Message %04x %d (%d) %s]", uint16(m.dir), m.PayloadLength(), m.end, contents)
}

// Reset prepares the Message for writing. The direction marker and the
// prefix code are written and the cursor is placed after them. The
// buffer contents are otherwise left as they were.
func (m *Message) Reset() {
	if m.fixed {
		return
	}
	m.buf[0] = byte(m.dir >> 8)
	m.buf[1] = byte(m.dir)
	m.buf[2] = 0
	m.buf[3] = 0
	if m.code != 0 {
		m.buf[SecureOffset] = byte(m.code)
	}
	m.pos = m.prefix
	m.end = m.prefix
	m.markPos = 0
	m.count = 0
}

// Clear zero-fills the buffer and resets the Message.
func (m *Message) Clear() {
	if m.fixed {
		return
	}
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.Reset()
}

// End finishes writing. The used region ends at the cursor and its
// length is stored in the header.
func (m *Message) End() {
	if m.fixed {
		return
	}
	m.end = m.pos
	PutUint16(m.buf, 2, m.end-PacketHeaderSize)
}

// Rewind moves the cursor back to where Reset left it.
func (m *Message) Rewind() {
	m.pos = m.prefix
}

// Seek moves the cursor to off, which must be within the used region.
func (m *Message) Seek(off int) error {
	if off < 0 || off > m.end {
		return malformed("seek to %d outside 0..%d", off, m.end)
	}
	m.pos = off
	return nil
}

// Direction returns the direction marker of the Message.
func (m *Message) Direction() Direction { return m.dir }

// SetDirection sets the direction used for header name decoding
// and by the next Reset.
func (m *Message) SetDirection(dir Direction) { m.dir = dir }

// Capacity returns the size of the buffer.
func (m *Message) Capacity() int { return len(m.buf) }

// Position returns the cursor.
func (m *Message) Position() int { return m.pos }

// Length returns the end of the used region, header included.
func (m *Message) Length() int { return m.end }

// PayloadLength returns the number of bytes following the packet header.
func (m *Message) PayloadLength() int {
	if m.end < PacketHeaderSize {
		return 0
	}
	return m.end - PacketHeaderSize
}

// Available returns the number of bytes that can still be written.
func (m *Message) Available() int { return len(m.buf) - m.pos }

// Bytes returns the used region, header included. It aliases the buffer.
func (m *Message) Bytes() []byte { return m.buf[:m.end] }

// Code returns the prefix code without the SecureFlag,
// or 0 if the payload is empty.
func (m *Message) Code() PrefixCode {
	if !m.hasPrefixByte() {
		return 0
	}
	return PrefixCode(m.buf[SecureOffset] &^ SecureFlag)
}

func (m *Message) hasPrefixByte() bool {
	return !m.raw && m.end > SecureOffset
}

// hasRoom reports whether n more bytes fit at the cursor.
func (m *Message) hasRoom(n int) bool {
	return m.pos+n <= len(m.buf)
}

func (m *Message) data() []byte { return m.buf[:m.end] }

// AddByte appends a single byte.
func (m *Message) AddByte(b byte) error {
	if !m.hasRoom(1) {
		return overflow(1, m.Available())
	}
	m.buf[m.pos] = b
	m.pos++
	return nil
}

// GetByte reads a single byte.
func (m *Message) GetByte() (byte, error) {
	b, err := m.PeekByte()
	if err == nil {
		m.pos++
	}
	return b, err
}

// PeekByte reads a single byte without moving the cursor.
func (m *Message) PeekByte() (byte, error) {
	if m.pos < 0 || m.pos >= m.end {
		return 0, malformed("short read at %d, need 1 byte", m.pos)
	}
	return m.buf[m.pos], nil
}

// AddShort appends a 16-bit integer. Values above 0xffff wrap.
func (m *Message) AddShort(v int) error {
	n, err := PutUint16(m.buf, m.pos, v)
	m.pos += n
	return err
}

// GetShort reads a 16-bit integer.
func (m *Message) GetShort() (int, error) {
	v, err := Uint16(m.data(), m.pos)
	if err == nil {
		m.pos += 2
	}
	return v, err
}

// PeekShort reads a 16-bit integer without moving the cursor.
func (m *Message) PeekShort() (int, error) {
	return Uint16(m.data(), m.pos)
}

// AddBoolean appends a boolean as one byte.
func (m *Message) AddBoolean(b bool) error {
	n, err := PutBool(m.buf, m.pos, b)
	m.pos += n
	return err
}

// GetBoolean reads a boolean.
func (m *Message) GetBoolean() (bool, error) {
	b, err := Bool(m.data(), m.pos)
	if err == nil {
		m.pos++
	}
	return b, err
}

// AddBytes appends p as a length-prefixed, NUL-terminated byte string.
// A nil p is written as an empty string.
func (m *Message) AddBytes(p []byte) error {
	n, err := PutBytes(m.buf, m.pos, p)
	m.pos += n
	return err
}

// GetBytes reads a byte string written by AddBytes. The result aliases the buffer.
func (m *Message) GetBytes() ([]byte, error) {
	p, n, err := Bytes(m.data(), m.pos)
	m.pos += n
	return p, err
}

// AddString appends s as a length-prefixed, NUL-terminated string.
func (m *Message) AddString(s string) error {
	n, err := PutString(m.buf, m.pos, s)
	m.pos += n
	return err
}

// AddNullString appends the marker for an absent string.
func (m *Message) AddNullString() error {
	return m.AddShort(NullStringLength)
}

// GetString reads a string written by AddString. An absent string reads as "".
func (m *Message) GetString() (string, error) {
	s, n, err := String(m.data(), m.pos)
	m.pos += n
	return s, err
}

// GetRequestHeaderName reads a request header name, either a tagged code
// or a literal string.
func (m *Message) GetRequestHeaderName() (string, error) {
	return m.getHeaderName(RequestHeaders)
}

// GetResponseHeaderName reads a response header name, either a tagged code
// or a literal string.
func (m *Message) GetResponseHeaderName() (string, error) {
	return m.getHeaderName(ResponseHeaders)
}

// GetHeaderName reads a header name using the request table for
// messages from the web server and the response table otherwise.
func (m *Message) GetHeaderName() (string, error) {
	if m.dir == ServerToContainer {
		return m.GetRequestHeaderName()
	}
	return m.GetResponseHeaderName()
}

func (m *Message) getHeaderName(t *Table) (string, error) {
	v, err := m.PeekShort()
	if err != nil {
		return "", err
	}
	if isHeaderCode(v) {
		name, err := t.Resolve(v & 0xff)
		if err != nil {
			return "", err
		}
		m.pos += 2
		return name, nil
	}
	return m.GetString()
}

// headerNameSize returns the encoded size of a header name and its code, or 0.
func headerNameSize(t *Table, name string) (size, code int) {
	if code = t.Lookup(name, AJP13Only); code > 0 {
		return 2, code
	}
	return len(name) + 3, 0
}

// addHeader writes a name/value pair, interning the name through t.
// Either the whole pair is written or nothing is. A literal name whose
// length would read back as a tagged code is refused.
func (m *Message) addHeader(t *Table, name, value string) error {
	nameSize, code := headerNameSize(t, name)
	if code == 0 && isHeaderCode(len(name)) {
		return errors.WithStack(HeaderNameError{Length: len(name)})
	}
	need := nameSize + len(value) + 3
	if !m.hasRoom(need) {
		return overflow(need, m.Available())
	}
	if code > 0 {
		m.AddShort(HeaderCodePrefix | code)
	} else {
		m.AddString(name)
	}
	m.AddString(value)
	m.Inc()
	return nil
}

// Mark reserves two bytes at the cursor for a count that Unmark fills in.
// Marks do not nest.
func (m *Message) Mark() error {
	if m.markPos > 0 {
		return errors.WithStack(ErrNestedMark)
	}
	if !m.hasRoom(2) {
		return overflow(2, m.Available())
	}
	m.markPos = m.pos
	m.count = 0
	m.AddShort(0)
	return nil
}

// Inc counts one item for the active mark.
func (m *Message) Inc() {
	m.count++
}

// Count returns the number of items counted since Mark.
func (m *Message) Count() int { return m.count }

// Unmark stores the count at the marked position and clears the mark.
func (m *Message) Unmark() {
	if m.markPos > 0 {
		PutUint16(m.buf, m.markPos, m.count)
		m.markPos = 0
	}
}

// SetEncryptionFlag sets or clears the SecureFlag bit of the prefix code byte.
func (m *Message) SetEncryptionFlag(on bool) error {
	if !m.hasPrefixByte() {
		return errors.WithStack(ErrNoPrefixCode)
	}
	if on {
		m.buf[SecureOffset] |= SecureFlag
	} else {
		m.buf[SecureOffset] &^= SecureFlag
	}
	return nil
}

// EncryptionFlag returns true if the SecureFlag bit is set.
func (m *Message) EncryptionFlag() bool {
	return m.hasPrefixByte() && m.buf[SecureOffset]&SecureFlag != 0
}

// Encrypt transforms the bytes from the cursor to the end of the used
// region with s, stores the new length and sets the SecureFlag.
// The cursor must be past the prefix code.
func (m *Message) Encrypt(s Secure) error {
	if err := m.transform(s.Encrypt); err != nil {
		return err
	}
	return m.SetEncryptionFlag(true)
}

// Decrypt reverses Encrypt and clears the SecureFlag. The plaintext
// must fit in the buffer.
func (m *Message) Decrypt(s Secure) error {
	if err := m.transform(s.Decrypt); err != nil {
		return err
	}
	return m.SetEncryptionFlag(false)
}

func (m *Message) transform(fn func(dst, src []byte) (int, error)) error {
	if !m.hasPrefixByte() {
		return errors.WithStack(ErrNoPrefixCode)
	}
	if m.pos <= SecureOffset || m.pos > m.end {
		return malformed("cursor %d outside used region %d", m.pos, m.end)
	}
	room := len(m.buf) - m.pos
	out := make([]byte, room)
	n, err := fn(out, m.buf[m.pos:m.end])
	if err != nil {
		return errors.Wrap(err, "ajp: secure transform")
	}
	if n < 0 || n > room {
		return overflow(n, room)
	}
	copy(m.buf[m.pos:], out[:n])
	m.end = m.pos + n
	PutUint16(m.buf, 2, m.end-PacketHeaderSize)
	return nil
}

// CopyMessage copies the used region, cursor and direction of src into dst.
func CopyMessage(dst, src *Message) error {
	if len(dst.buf) < src.end {
		return overflow(src.end, len(dst.buf))
	}
	copy(dst.buf, src.buf[:src.end])
	dst.end = src.end
	dst.pos = src.pos
	dst.dir = src.dir
	dst.markPos = 0
	dst.count = 0
	return nil
}

// ReadFrom reads one packet from r, replacing the contents of the Message.
// The direction is taken from the marker and the cursor is left at the
// first payload byte. Implements io.ReaderFrom.
func (m *Message) ReadFrom(r io.Reader) (n int64, err error) {
	var num int
	num, err = io.ReadFull(r, m.buf[:PacketHeaderSize])
	n = int64(num)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return n, errors.WithStack(err)
		}
		return n, errors.Wrap(err, "ajp: read header")
	}
	magic := Direction(uint16(m.buf[0])<<8 | uint16(m.buf[1]))
	if !magic.Valid() {
		m.end = 0
		return n, errors.WithStack(MagicError{Magic: uint16(magic)})
	}
	size := int(m.buf[2])<<8 | int(m.buf[3])
	if PacketHeaderSize+size > len(m.buf) {
		m.end = 0
		return n, malformed("payload of %d bytes exceeds capacity %d", size, len(m.buf))
	}
	num, err = io.ReadFull(r, m.buf[PacketHeaderSize:PacketHeaderSize+size])
	n += int64(num)
	if err != nil {
		m.end = 0
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, errors.WithStack(err)
	}
	m.dir = magic
	m.end = PacketHeaderSize + size
	m.pos = PacketHeaderSize
	m.markPos = 0
	m.count = 0
	return n, nil
}

// WriteTo writes the used region to w. Implements io.WriterTo.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	if m.end < PacketHeaderSize {
		return 0, malformed("incomplete header")
	}
	n := 0
	for n < m.end {
		num, err := w.Write(m.buf[n:m.end])
		n += num
		if err != nil {
			return int64(n), errors.WithStack(err)
		}
	}
	return int64(n), nil
}
