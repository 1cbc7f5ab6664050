// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Table maps well-known names to small codes starting at 1.
// Tables are built once at init and never modified.
type Table struct {
	name  string
	names []string // index 0 is unused
	codes map[string]int
	ajp13 int // highest code defined by AJP13
}

// newTable builds a Table from names in code order. The first ajp13
// names are the AJP13 set. It panics on empty or duplicate names.
func newTable(name string, ajp13 int, names ...string) *Table {
	if ajp13 < 1 || ajp13 > len(names) {
		panic(fmt.Sprintf("ajp: %s table: AJP13 ceiling %d outside 1..%d", name, ajp13, len(names)))
	}
	t := &Table{
		name:  name,
		names: make([]string, len(names)+1),
		codes: make(map[string]int, len(names)),
		ajp13: ajp13,
	}
	for i, s := range names {
		key := strings.ToLower(s)
		if key == "" {
			panic(fmt.Sprintf("ajp: %s table: empty name at code %d", name, i+1))
		}
		if _, ok := t.codes[key]; ok {
			panic(fmt.Sprintf("ajp: %s table: duplicate name %q", name, s))
		}
		t.names[i+1] = s
		t.codes[key] = i + 1
	}
	return t
}

// Len returns the highest code in the table.
func (t *Table) Len() int { return len(t.names) - 1 }

// AJP13Len returns the highest code defined by AJP13.
func (t *Table) AJP13Len() int { return t.ajp13 }

// Lookup returns the code for name, or 0 if name is not in the table.
// Case is ignored. If ajp13Only is set, codes above the AJP13 ceiling
// are not returned.
func (t *Table) Lookup(name string, ajp13Only bool) int {
	code, ok := t.codes[name]
	if !ok {
		code = t.codes[strings.ToLower(name)]
	}
	if ajp13Only && code > t.ajp13 {
		return 0
	}
	return code
}

// Resolve returns the canonical name for code.
func (t *Table) Resolve(code int) (string, error) {
	if code < 1 || code > t.Len() {
		return "", errors.WithStack(OutOfRangeError{Table: t.name, Code: code, Max: t.Len()})
	}
	return t.names[code], nil
}

// AttributeDone terminates the attribute list of a forward request.
const AttributeDone = 0xFF

// StoredMethod is the method code sent when the method name
// follows as a stored_method attribute.
const StoredMethod = 0xFF

// Attribute codes that the encoder and decoder treat specially.
const (
	AttributeQueryString  = 0x05
	AttributeReqAttribute = 0x0A
	AttributeStoredMethod = 0x0D
)

var (
	// RequestHeaders interns request header names, AJP13 codes 0xA001..0xA00E.
	RequestHeaders = newTable("request header", 14,
		"Accept",
		"Accept-Charset",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Connection",
		"Content-Type",
		"Content-Length",
		"Cookie",
		"Cookie2",
		"Host",
		"Pragma",
		"Referer",
		"User-Agent",
		// extension
		"Cache-Control",
		"If-Modified-Since",
		"If-None-Match",
		"Range",
		"Origin",
		"X-Forwarded-For",
	)

	// ResponseHeaders interns response header names, AJP13 codes 0xA001..0xA00B.
	ResponseHeaders = newTable("response header", 11,
		"Content-Type",
		"Content-Language",
		"Content-Length",
		"Date",
		"Last-Modified",
		"Location",
		"Set-Cookie",
		"Set-Cookie2",
		"Servlet-Engine",
		"Status",
		"WWW-Authenticate",
		// extension
		"Cache-Control",
		"ETag",
		"Expires",
		"Vary",
		"Transfer-Encoding",
	)

	// Methods interns HTTP method names, codes 1..27.
	Methods = newTable("method", 27,
		"OPTIONS",
		"GET",
		"HEAD",
		"POST",
		"PUT",
		"DELETE",
		"TRACE",
		"PROPFIND",
		"PROPPATCH",
		"MKCOL",
		"COPY",
		"MOVE",
		"LOCK",
		"UNLOCK",
		"ACL",
		"REPORT",
		"VERSION-CONTROL",
		"CHECKIN",
		"CHECKOUT",
		"UNCHECKOUT",
		"SEARCH",
		"MKWORKSPACE",
		"UPDATE",
		"LABEL",
		"MERGE",
		"BASELINE-CONTROL",
		"MKACTIVITY",
	)

	// Attributes interns forward request attribute names, codes 1..13.
	Attributes = newTable("attribute", 13,
		"context",
		"servlet_path",
		"remote_user",
		"auth_type",
		"query_string",
		"jvm_route",
		"ssl_cert",
		"ssl_cipher",
		"ssl_session",
		"req_attribute",
		"ssl_key_size",
		"secret",
		"stored_method",
	)
)

// LookupRequestHeaderCode returns the code for a request header name, or 0.
// Codes above the AJP13 ceiling are only returned if AJP13Only is off.
func LookupRequestHeaderCode(name string) int {
	return RequestHeaders.Lookup(name, AJP13Only)
}

// LookupResponseHeaderCode returns the code for a response header name, or 0.
// Codes above the AJP13 ceiling are only returned if AJP13Only is off.
func LookupResponseHeaderCode(name string) int {
	return ResponseHeaders.Lookup(name, AJP13Only)
}

// ResolveRequestHeaderName returns the request header name for code.
func ResolveRequestHeaderName(code int) (string, error) {
	return RequestHeaders.Resolve(code)
}

// ResolveResponseHeaderName returns the response header name for code.
func ResolveResponseHeaderName(code int) (string, error) {
	return ResponseHeaders.Resolve(code)
}

// LookupMethodCode returns the code for an HTTP method, or 0.
func LookupMethodCode(name string) int {
	return Methods.Lookup(strings.ToUpper(name), false)
}

// ResolveMethodName returns the method name for code. For StoredMethod it
// returns stored set and an empty name, the name travels as an attribute.
func ResolveMethodName(code byte) (name string, stored bool, err error) {
	if code == StoredMethod {
		return "", true, nil
	}
	name, err = Methods.Resolve(int(code))
	return
}

// LookupAttributeCode returns the code for an attribute name, or 0.
func LookupAttributeCode(name string) int {
	return Attributes.Lookup(name, false)
}

// ResolveAttributeName returns the attribute name for code.
func ResolveAttributeName(code byte) (string, error) {
	return Attributes.Resolve(int(code))
}

// isHeaderCode reports whether a 16-bit name field is a tagged code.
func isHeaderCode(v int) bool {
	return v&HeaderCodePrefix == HeaderCodePrefix
}
