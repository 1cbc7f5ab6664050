// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"strings"

	"github.com/pkg/errors"
)

// MethodRef is an HTTP method, either a well-known code or a literal name.
type MethodRef struct {
	code byte
	name string
}

// KnownMethod returns the MethodRef for a method table code.
func KnownMethod(code byte) MethodRef {
	name, _ := Methods.Resolve(int(code))
	return MethodRef{code: code, name: name}
}

// LiteralMethod returns a MethodRef sent as a stored_method attribute.
func LiteralMethod(name string) MethodRef {
	return MethodRef{code: StoredMethod, name: name}
}

// MethodRefFor returns the MethodRef for name, known if it is in the method table.
func MethodRefFor(name string) MethodRef {
	if code := LookupMethodCode(name); code > 0 {
		return KnownMethod(byte(code))
	}
	return LiteralMethod(name)
}

// Code returns the method byte, StoredMethod for literal names.
func (mr MethodRef) Code() byte { return mr.code }

// Name returns the method name.
func (mr MethodRef) Name() string { return mr.name }

// IsLiteral returns true if the name travels as a stored_method attribute.
func (mr MethodRef) IsLiteral() bool { return mr.code == StoredMethod }

// Valid returns true if the MethodRef was set.
func (mr MethodRef) Valid() bool { return mr.code != 0 }

// Header is a name/value pair.
type Header struct {
	Name  string
	Value string
}

// Attribute is a forward request attribute.
type Attribute struct {
	Name  string
	Value string
}

// Request is the decoded content of a FORWARD_REQUEST.
type Request struct {
	Method     string
	Protocol   string
	URI        string
	RemoteAddr string
	RemoteHost string
	ServerName string
	ServerPort int
	IsSSL      bool
	Headers    []Header
	Attributes []Attribute
}

// Header returns the value of the first header matching name, ignoring case.
func (req *Request) Header(name string) (string, bool) {
	for _, h := range req.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Attribute returns the value of the first attribute named name.
func (req *Request) Attribute(name string) (string, bool) {
	for _, a := range req.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ForwardRequest encodes a request forwarded from the web server.
//
// The layout is the one AJP13 peers (mod_jk, mod_proxy_ajp) send: the
// prefix code is followed directly by the method byte, with no alignment
// byte in between. Header names are 16-bit tagged codes or literal strings,
// but attribute names use the one-byte AJP13 attribute codes, ending with
// AttributeDone. Attributes outside that table travel as req_attribute
// with a literal name.
type ForwardRequest struct {
	Message
	method MethodRef
}

// NewForwardRequest allocates a ForwardRequest of the given capacity.
func NewForwardRequest(size int) *ForwardRequest {
	fr := &ForwardRequest{}
	fr.init(ServerToContainer, size, ForwardRequestCode, SecureOffset+1)
	return fr
}

// Reset prepares the ForwardRequest for writing.
func (fr *ForwardRequest) Reset() {
	fr.Message.Reset()
	fr.method = MethodRef{}
}

// Method returns the method set by AddMethod.
func (fr *ForwardRequest) Method() MethodRef { return fr.method }

// AddMethod writes the method byte. Methods not in the table are written
// as StoredMethod and their name is appended as an attribute by End.
func (fr *ForwardRequest) AddMethod(name string) error {
	mr := MethodRefFor(name)
	if err := fr.AddByte(mr.Code()); err != nil {
		return err
	}
	fr.method = mr
	return nil
}

// AddHeader writes a request header and counts it for the active mark.
func (fr *ForwardRequest) AddHeader(name, value string) error {
	return fr.addHeader(RequestHeaders, name, value)
}

// AddAttribute writes an attribute. Names in the attribute table are sent
// as their code, others as a req_attribute with the literal name. The
// req_attribute and stored_method names are always sent literally, the
// method override is written by End from AddMethod.
func (fr *ForwardRequest) AddAttribute(name, value string) error {
	code := LookupAttributeCode(name)
	if code == AttributeReqAttribute || code == AttributeStoredMethod {
		code = 0
	}
	need := 1 + len(value) + 3
	if code == 0 {
		need += len(name) + 3
	}
	if !fr.hasRoom(need) {
		return overflow(need, fr.Available())
	}
	if code > 0 {
		fr.AddByte(byte(code))
	} else {
		fr.AddByte(AttributeReqAttribute)
		fr.AddString(name)
	}
	fr.AddString(value)
	return nil
}

// End appends the stored method if needed and the attribute terminator,
// stores the length and rewinds the cursor so the message can be read back.
func (fr *ForwardRequest) End() error {
	need := 1
	if fr.method.IsLiteral() {
		need += 1 + len(fr.method.name) + 3
	}
	if !fr.hasRoom(need) {
		return overflow(need, fr.Available())
	}
	if fr.method.IsLiteral() {
		fr.AddByte(AttributeStoredMethod)
		fr.AddString(fr.method.name)
	}
	fr.AddByte(AttributeDone)
	fr.Message.End()
	fr.Rewind()
	return nil
}

// Encode writes req as a complete FORWARD_REQUEST.
func (fr *ForwardRequest) Encode(req *Request) (err error) {
	fr.Reset()
	if err = fr.AddMethod(req.Method); err != nil {
		return errors.Wrap(err, "method")
	}
	for _, s := range []string{req.Protocol, req.URI, req.RemoteAddr, req.RemoteHost, req.ServerName} {
		if err = fr.AddString(s); err != nil {
			return errors.Wrap(err, "request line")
		}
	}
	if err = fr.AddShort(req.ServerPort); err != nil {
		return
	}
	if err = fr.AddBoolean(req.IsSSL); err != nil {
		return
	}
	if err = fr.Mark(); err != nil {
		return
	}
	for _, h := range req.Headers {
		if err = fr.AddHeader(h.Name, h.Value); err != nil {
			return errors.Wrapf(err, "header %q", h.Name)
		}
	}
	fr.Unmark()
	for _, a := range req.Attributes {
		if a.Name == "stored_method" {
			continue
		}
		if err = fr.AddAttribute(a.Name, a.Value); err != nil {
			return errors.Wrapf(err, "attribute %q", a.Name)
		}
	}
	return fr.End()
}

// DecodeForwardRequest reads a FORWARD_REQUEST.
func DecodeForwardRequest(m *Message) (req *Request, err error) {
	if err = m.expect(ForwardRequestCode); err != nil {
		return
	}
	var methodCode byte
	if methodCode, err = m.GetByte(); err != nil {
		return
	}
	name, stored, err := ResolveMethodName(methodCode)
	if err != nil {
		return nil, errors.Wrap(err, "method")
	}
	req = &Request{Method: name}
	for _, p := range []*string{&req.Protocol, &req.URI, &req.RemoteAddr, &req.RemoteHost, &req.ServerName} {
		if *p, err = m.GetString(); err != nil {
			return nil, errors.Wrap(err, "request line")
		}
	}
	if req.ServerPort, err = m.GetShort(); err != nil {
		return nil, err
	}
	if req.IsSSL, err = m.GetBoolean(); err != nil {
		return nil, err
	}
	numHeaders, err := m.GetShort()
	if err != nil {
		return nil, err
	}
	req.Headers = make([]Header, 0, numHeaders)
	for i := 0; i < numHeaders; i++ {
		var h Header
		if h.Name, err = m.GetRequestHeaderName(); err != nil {
			return nil, errors.Wrapf(err, "header %d name", i)
		}
		if h.Value, err = m.GetString(); err != nil {
			return nil, errors.Wrapf(err, "header %d value", i)
		}
		req.Headers = append(req.Headers, h)
	}
	for {
		var code byte
		if code, err = m.GetByte(); err != nil {
			return nil, errors.Wrap(err, "missing attribute terminator")
		}
		if code == AttributeDone {
			break
		}
		var a Attribute
		if code == AttributeReqAttribute {
			if a.Name, err = m.GetString(); err != nil {
				return nil, errors.Wrap(err, "req_attribute name")
			}
		} else if a.Name, err = ResolveAttributeName(code); err != nil {
			return nil, err
		}
		if a.Value, err = m.GetString(); err != nil {
			return nil, errors.Wrapf(err, "attribute %q", a.Name)
		}
		if code == AttributeStoredMethod {
			req.Method = a.Value
			stored = false
			continue
		}
		req.Attributes = append(req.Attributes, a)
	}
	if stored {
		return nil, malformed("stored method code without stored_method attribute")
	}
	return req, nil
}
