// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

// Provides a buffer of allocated but unused Messages of DefaultPacketSize.
// A Message is owned by whoever allocated it until it is passed to MessageFree.
var messagePool chan *Message

func init() {
	messagePool = make(chan *Message, 0x100)
}

// MessageAlloc returns a reset Message of DefaultPacketSize for receiving
// or for writing request body data.
func MessageAlloc(dir Direction) *Message {
	select {
	case m := <-messagePool:
		m.dir = dir
		m.Reset()
		return m
	default:
		return NewMessage(dir, DefaultPacketSize)
	}
}

// MessageFree releases a Message allocated with MessageAlloc.
// The caller must not use it afterwards.
func MessageFree(m *Message) {
	if m != nil && !m.fixed && !m.raw && m.code == 0 && len(m.buf) == packetSize(DefaultPacketSize) {
		select {
		case messagePool <- m:
		default:
		}
	}
}
