// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

/*
Package ajp implements the message layer of the Apache JServ Protocol, version 1.3.

AJP is the binary protocol a front-end web server (Apache mod_jk, mod_proxy_ajp) uses to forward HTTP requests to an application container over persistent connections, and that the container uses to send the responses back.

A packet is a 4-byte header followed by a payload of at most MaxPayloadSize bytes. The header is a direction marker, 0x1234 for packets from the web server and "AB" for packets from the container, followed by the payload length. Common header names and HTTP methods travel as small codes from fixed tables instead of as strings.

A Message is a fixed-capacity buffer with a cursor and typed Add and Get accessors. The concrete messages (ForwardRequest, SendHeaders, SendBodyChunk, GetBodyChunk, DataMessage and the control messages) fix the prefix code and layout. The codec keeps no shared mutable state: control messages are built fresh from read-only templates, and MessageAlloc/MessageFree hand out exclusively owned receive buffers.

Conn moves whole packets over an io.ReadWriteCloser and implements CPING/CPONG. Connection pooling and request dispatch are left to the caller. */
package ajp
