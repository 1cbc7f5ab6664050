// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import "github.com/pkg/errors"

// Templates for the control messages. They are never handed out,
// the constructors copy them into a fresh Message for every use.
var (
	cpingTemplate        = []byte{0x12, 0x34, 0x00, 0x01, byte(CPingCode)}
	cpongTemplate        = []byte{0x41, 0x42, 0x00, 0x01, byte(CPongCode)}
	shutdownTemplate     = []byte{0x12, 0x34, 0x00, 0x01, byte(ShutdownCode)}
	closeTemplate        = []byte{0x41, 0x42, 0x00, 0x01, byte(CloseCode)}
	flushTemplate        = []byte{0x41, 0x42, 0x00, 0x04, byte(SendBodyChunkCode), 0x00, 0x00, 0x00}
	getBodyChunkTemplate = []byte{0x41, 0x42, 0x00, 0x03, byte(GetBodyChunkCode), 0x00, 0x00}
)

// ShutdownMode is the optional mode byte of a shutdown message.
type ShutdownMode byte

const (
	// ShutdownDefault sends a bare AJP13 shutdown.
	ShutdownDefault = ShutdownMode(0)
	// ShutdownGraceful lets in-flight requests finish.
	ShutdownGraceful = ShutdownMode(1)
	// ShutdownImmediate aborts in-flight requests.
	ShutdownImmediate = ShutdownMode(2)
)

// NewCPing returns a CPING_REQUEST.
func NewCPing() *Message { return newFixed(cpingTemplate) }

// NewSecureCPing returns a CPING_REQUEST carrying the seed of s, or a
// plain CPING_REQUEST if s has no seed.
func NewSecureCPing(s Secure) (*Message, error) {
	var seed []byte
	if s != nil {
		seed = s.Seed()
	}
	if seed == nil {
		return NewCPing(), nil
	}
	m := &Message{}
	m.init(ServerToContainer, PacketHeaderSize+1+len(seed)+3, CPingCode, PacketHeaderSize+1)
	if err := m.AddBytes(seed); err != nil {
		return nil, err
	}
	m.End()
	return m, nil
}

// NewCPong returns a CPONG_REPLY.
func NewCPong() *Message { return newFixed(cpongTemplate) }

// NewClose returns a CLOSE.
func NewClose() *Message { return newFixed(closeTemplate) }

// NewShutdown returns a SHUTDOWN. A non-default mode is sent as one byte
// after the prefix code, and if s has a seed its digest follows.
func NewShutdown(mode ShutdownMode, s Secure) (*Message, error) {
	digest := SeedDigest(s)
	if mode == ShutdownDefault && digest == nil {
		return newFixed(shutdownTemplate), nil
	}
	m := &Message{}
	m.init(ServerToContainer, PacketHeaderSize+2+len(digest)+3, ShutdownCode, PacketHeaderSize+1)
	if err := m.AddByte(byte(mode)); err != nil {
		return nil, err
	}
	if digest != nil {
		if err := m.AddBytes(digest); err != nil {
			return nil, err
		}
	}
	m.End()
	return m, nil
}

// DecodeShutdown reads the mode and the optional digest of a SHUTDOWN.
func DecodeShutdown(m *Message) (mode ShutdownMode, digest []byte, err error) {
	if err = m.expect(ShutdownCode); err != nil {
		return
	}
	if m.pos >= m.end {
		return ShutdownDefault, nil, nil
	}
	var b byte
	if b, err = m.GetByte(); err != nil {
		return
	}
	mode = ShutdownMode(b)
	if m.pos < m.end {
		if digest, err = m.GetBytes(); err != nil {
			err = errors.Wrap(err, "shutdown digest")
		}
	}
	return
}

// DecodeCPing returns the seed carried by a CPING_REQUEST, if any.
func DecodeCPing(m *Message) (seed []byte, err error) {
	if err = m.expect(CPingCode); err != nil {
		return
	}
	if m.pos < m.end {
		seed, err = m.GetBytes()
	}
	return
}

// NewFlush returns an empty SEND_BODY_CHUNK, which asks the
// server to flush what it has received.
func NewFlush() *Message { return newFixed(flushTemplate) }

// IsFlush returns true if m is an empty SEND_BODY_CHUNK.
func IsFlush(m *Message) bool {
	return m.Code() == SendBodyChunkCode && m.end == len(flushTemplate) &&
		m.buf[5] == 0 && m.buf[6] == 0
}

// expect checks the prefix code and places the cursor after it.
func (m *Message) expect(code PrefixCode) error {
	if got := m.Code(); got != code {
		return errors.WithStack(UnexpectedTypeError{Want: code, Got: got})
	}
	m.pos = SecureOffset + 1
	return nil
}
