// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"fmt"
	"time"
)

const (
	// PacketHeaderSize is the number of bytes in a packet header,
	// the direction marker followed by the payload length.
	PacketHeaderSize = 4
	// MaxPacketSize is the largest buffer size allowed for a full packet.
	MaxPacketSize = 0x10000
	// PacketAlign is the boundary that message capacities are rounded up to.
	PacketAlign = 0x400
	// MaxPayloadSize is the maximum number of bytes following the packet header.
	MaxPayloadSize = MaxPacketSize - PacketHeaderSize
	// SecureFlag is the bit of the prefix code byte that marks an encrypted payload.
	SecureFlag = 0x80
	// SecureOffset is the buffer index holding the prefix code and SecureFlag.
	SecureOffset = PacketHeaderSize
	// HeaderCodePrefix tags a 16-bit header name field as an interned code
	// rather than a literal string length.
	HeaderCodePrefix = 0xA000
	// NullStringLength is the length value peers send for an absent string.
	NullStringLength = 0xFFFF
	// DefaultReadTimeout is how long Conn waits for a packet.
	DefaultReadTimeout = time.Second * 5
	// DefaultWriteTimeout is how long Conn waits to send a packet.
	DefaultWriteTimeout = time.Second * 5
)

var (
	// DefaultPacketSize is the capacity used when a constructor is given a size <= 0.
	DefaultPacketSize = 8192 // usually 8192
	// AJP13Only restricts header interning on the encode path to the codes
	// defined by AJP13. Turn it off only when every peer knows the extended tables.
	AJP13Only = true
)

// Direction tells which side of the connection wrote a message.
type Direction uint16

const (
	// ServerToContainer is the marker used by the front-end web server.
	ServerToContainer = Direction(0x1234)
	// ContainerToServer is the marker used by the application container, "AB".
	ContainerToServer = Direction(0x4142)
)

func (d Direction) String() string {
	switch d {
	case ServerToContainer:
		return "server->container"
	case ContainerToServer:
		return "container->server"
	}
	return fmt.Sprintf("Direction(%04x)", uint16(d))
}

// Valid returns true if d is one of the two direction markers.
func (d Direction) Valid() bool {
	return d == ServerToContainer || d == ContainerToServer
}

// PrefixCode enumerates the message types, carried in the first payload byte.
type PrefixCode byte

const (
	// ForwardRequestCode begins a request forwarded to the container.
	ForwardRequestCode = PrefixCode(2)
	// SendBodyChunkCode carries a chunk of response body.
	SendBodyChunkCode = PrefixCode(3)
	// SendHeadersCode carries the response status line and headers.
	SendHeadersCode = PrefixCode(4)
	// EndResponseCode marks the end of a response.
	EndResponseCode = PrefixCode(5)
	// GetBodyChunkCode asks the server for more request body.
	GetBodyChunkCode = PrefixCode(6)
	// ShutdownCode asks the container to shut down.
	ShutdownCode = PrefixCode(7)
	// CPongCode answers a CPing.
	CPongCode = PrefixCode(9)
	// CPingCode probes the container for liveness.
	CPingCode = PrefixCode(10)
	// CloseCode tells the server the container is closing the connection.
	CloseCode = PrefixCode(13)
)

var prefixCodeTexts = map[PrefixCode]string{
	ForwardRequestCode: "FORWARD_REQUEST",
	SendBodyChunkCode:  "SEND_BODY_CHUNK",
	SendHeadersCode:    "SEND_HEADERS",
	EndResponseCode:    "END_RESPONSE",
	GetBodyChunkCode:   "GET_BODY_CHUNK",
	ShutdownCode:       "SHUTDOWN",
	CPongCode:          "CPONG_REPLY",
	CPingCode:          "CPING_REQUEST",
	CloseCode:          "CLOSE",
}

func (pc PrefixCode) String() string {
	if s, ok := prefixCodeTexts[pc]; ok {
		return s
	}
	return fmt.Sprintf("PrefixCode(%d)", byte(pc))
}

// Known returns true if pc is a prefix code this package understands.
func (pc PrefixCode) Known() bool {
	_, ok := prefixCodeTexts[pc]
	return ok
}

// packetSize rounds n up to PacketAlign, using DefaultPacketSize
// if n is not positive and capping at MaxPacketSize.
func packetSize(n int) int {
	if n <= 0 {
		n = DefaultPacketSize
	}
	n = (n + PacketAlign - 1) &^ (PacketAlign - 1)
	if n > MaxPacketSize {
		n = MaxPacketSize
	}
	return n
}
