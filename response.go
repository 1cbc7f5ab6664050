// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"strings"

	"github.com/pkg/errors"
)

// Response is the decoded content of a SEND_HEADERS.
type Response struct {
	Status  int
	Reason  string
	Headers []Header
}

// Header returns the value of the first header matching name, ignoring case.
func (resp *Response) Header(name string) (string, bool) {
	for _, h := range resp.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// SendHeaders encodes the response status and headers.
type SendHeaders struct {
	Message
}

// NewSendHeaders allocates a SendHeaders of the given capacity.
func NewSendHeaders(size int) *SendHeaders {
	sh := &SendHeaders{}
	sh.init(ContainerToServer, size, SendHeadersCode, SecureOffset+1)
	return sh
}

// AddStatus writes the status code and reason phrase.
func (sh *SendHeaders) AddStatus(status int, reason string) error {
	need := 2 + len(reason) + 3
	if !sh.hasRoom(need) {
		return overflow(need, sh.Available())
	}
	sh.AddShort(status)
	sh.AddString(reason)
	return nil
}

// AddHeader writes a response header and counts it for the active mark.
func (sh *SendHeaders) AddHeader(name, value string) error {
	return sh.addHeader(ResponseHeaders, name, value)
}

// Encode writes resp as a complete SEND_HEADERS.
func (sh *SendHeaders) Encode(resp *Response) (err error) {
	sh.Reset()
	if err = sh.AddStatus(resp.Status, resp.Reason); err != nil {
		return errors.Wrap(err, "status")
	}
	if err = sh.Mark(); err != nil {
		return
	}
	for _, h := range resp.Headers {
		if err = sh.AddHeader(h.Name, h.Value); err != nil {
			return errors.Wrapf(err, "header %q", h.Name)
		}
	}
	sh.Unmark()
	sh.End()
	return nil
}

// DecodeSendHeaders reads a SEND_HEADERS.
func DecodeSendHeaders(m *Message) (resp *Response, err error) {
	if err = m.expect(SendHeadersCode); err != nil {
		return
	}
	resp = &Response{}
	if resp.Status, err = m.GetShort(); err != nil {
		return nil, err
	}
	if resp.Reason, err = m.GetString(); err != nil {
		return nil, errors.Wrap(err, "reason")
	}
	numHeaders, err := m.GetShort()
	if err != nil {
		return nil, err
	}
	resp.Headers = make([]Header, 0, numHeaders)
	for i := 0; i < numHeaders; i++ {
		var h Header
		if h.Name, err = m.GetResponseHeaderName(); err != nil {
			return nil, errors.Wrapf(err, "header %d name", i)
		}
		if h.Value, err = m.GetString(); err != nil {
			return nil, errors.Wrapf(err, "header %d value", i)
		}
		resp.Headers = append(resp.Headers, h)
	}
	return resp, nil
}

// NewEndResponse returns an END_RESPONSE. If reuse is set the
// connection may carry another request.
func NewEndResponse(reuse bool) *Message {
	m := &Message{}
	m.init(ContainerToServer, PacketAlign, EndResponseCode, SecureOffset+1)
	m.AddBoolean(reuse)
	m.End()
	return m
}

// DecodeEndResponse returns the reuse flag of an END_RESPONSE.
func DecodeEndResponse(m *Message) (reuse bool, err error) {
	if err = m.expect(EndResponseCode); err != nil {
		return
	}
	return m.GetBoolean()
}
