// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

// SendBodyChunk carries response body data from the container.
type SendBodyChunk struct {
	Message
}

// NewSendBodyChunk allocates a SendBodyChunk with room for size bytes in total.
func NewSendBodyChunk(size int) *SendBodyChunk {
	sbc := &SendBodyChunk{}
	sbc.init(ContainerToServer, size, SendBodyChunkCode, SecureOffset+1)
	return sbc
}

// MaxChunk returns the largest chunk that fits.
func (sbc *SendBodyChunk) MaxChunk() int {
	return len(sbc.buf) - (SecureOffset + 1) - 3
}

// AddChunk writes p as the chunk and finishes the message.
func (sbc *SendBodyChunk) AddChunk(p []byte) error {
	sbc.Reset()
	if err := sbc.AddBytes(p); err != nil {
		return err
	}
	sbc.End()
	return nil
}

// DecodeBodyChunk returns the chunk of a SEND_BODY_CHUNK. The result aliases m.
func DecodeBodyChunk(m *Message) ([]byte, error) {
	if err := m.expect(SendBodyChunkCode); err != nil {
		return nil, err
	}
	return m.GetBytes()
}

// GetBodyChunk asks the web server for up to RequestedLength bytes of request body.
type GetBodyChunk struct {
	Message
}

// NewGetBodyChunk returns a GetBodyChunk requesting n bytes.
func NewGetBodyChunk(n int) *GetBodyChunk {
	gbc := &GetBodyChunk{Message: *newFixed(getBodyChunkTemplate)}
	gbc.SetRequestedLength(n)
	return gbc
}

// SetRequestedLength sets the number of bytes asked for, capped at MaxPayloadSize.
func (gbc *GetBodyChunk) SetRequestedLength(n int) {
	if n > MaxPayloadSize {
		n = MaxPayloadSize
	}
	if n < 0 {
		n = 0
	}
	PutUint16(gbc.buf, SecureOffset+1, n)
}

// RequestedLength returns the number of bytes asked for.
func (gbc *GetBodyChunk) RequestedLength() int {
	n, _ := Uint16(gbc.buf, SecureOffset+1)
	return n
}

// DecodeGetBodyChunk returns the number of bytes a GET_BODY_CHUNK asks for.
func DecodeGetBodyChunk(m *Message) (int, error) {
	if err := m.expect(GetBodyChunkCode); err != nil {
		return 0, err
	}
	return m.GetShort()
}

// DataMessage carries request body data from the web server. It has no
// prefix code, the payload is a 2-byte length followed by the data.
// An empty DataMessage marks the end of the body.
type DataMessage struct {
	Message
}

// NewDataMessage allocates a DataMessage with room for size bytes in total.
func NewDataMessage(size int) *DataMessage {
	dm := &DataMessage{}
	dm.raw = true
	dm.init(ServerToContainer, size, 0, PacketHeaderSize)
	return dm
}

// MaxData returns the largest data block that fits.
func (dm *DataMessage) MaxData() int {
	return len(dm.buf) - PacketHeaderSize - 2
}

// AddData writes p as the body data and finishes the message.
// An empty p makes an end-of-body message.
func (dm *DataMessage) AddData(p []byte) error {
	dm.Reset()
	if len(p) > 0 {
		need := len(p) + 2
		if !dm.hasRoom(need) {
			return overflow(need, dm.Available())
		}
		dm.AddShort(len(p))
		dm.pos += copy(dm.buf[dm.pos:], p)
	}
	dm.End()
	return nil
}

// Data returns the body data, nil at end of body. The result aliases the message.
func (dm *DataMessage) Data() ([]byte, error) {
	return DecodeData(&dm.Message)
}

// DecodeData returns the body data of a request body packet.
func DecodeData(m *Message) ([]byte, error) {
	m.pos = PacketHeaderSize
	if m.end == PacketHeaderSize {
		return nil, nil
	}
	n, err := m.GetShort()
	if err != nil {
		return nil, err
	}
	if m.pos+n > m.end {
		return nil, malformed("body data of %d bytes extends past end of data (%d)", n, m.end)
	}
	p := m.buf[m.pos : m.pos+n]
	m.pos += n
	return p, nil
}

// IsEndOfBody returns true if m is an empty request body packet.
func IsEndOfBody(m *Message) bool {
	return m.dir == ServerToContainer && m.end == PacketHeaderSize
}
