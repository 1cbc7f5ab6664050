// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// splitHostPort splits hostport, using defaultPort if there is no port.
func splitHostPort(hostport string, defaultPort int) (string, int) {
	host, portString, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, defaultPort
	}
	port, err := strconv.Atoi(portString)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

func defaultPort(isSSL bool) int {
	if isSSL {
		return 443
	}
	return 80
}

// RequestFromHTTP builds a Request from an incoming http.Request.
// Headers are emitted in sorted order, Host first.
func RequestFromHTTP(r *http.Request) *Request {
	req := &Request{
		Method:   r.Method,
		Protocol: r.Proto,
		URI:      r.URL.EscapedPath(),
		IsSSL:    r.TLS != nil,
	}
	if req.Protocol == "" {
		req.Protocol = "HTTP/1.1"
	}
	if req.URI == "" {
		req.URI = "/"
	}
	req.RemoteAddr, _ = splitHostPort(r.RemoteAddr, 0)
	req.RemoteHost = req.RemoteAddr
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	req.ServerName, req.ServerPort = splitHostPort(host, defaultPort(req.IsSSL))

	if _, ok := r.Header["Host"]; !ok && host != "" {
		req.Headers = append(req.Headers, Header{Name: "Host", Value: host})
	}
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			req.Headers = append(req.Headers, Header{Name: k, Value: v})
		}
	}
	if _, ok := r.Header["Content-Length"]; !ok && r.ContentLength > 0 {
		req.Headers = append(req.Headers, Header{Name: "Content-Length", Value: strconv.FormatInt(r.ContentLength, 10)})
	}

	if r.URL.RawQuery != "" {
		req.Attributes = append(req.Attributes, Attribute{Name: "query_string", Value: r.URL.RawQuery})
	}
	if r.TLS != nil {
		req.Attributes = append(req.Attributes, Attribute{Name: "ssl_cipher", Value: tls.CipherSuiteName(r.TLS.CipherSuite)})
	}
	return req
}

// HTTPRequest returns an http.Request for req. The body is http.NoBody,
// request body data arrives in separate packets.
func (req *Request) HTTPRequest() (*http.Request, error) {
	u, err := url.Parse(req.URI)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	u.Scheme = "http"
	if req.IsSSL {
		u.Scheme = "https"
	}
	u.Host = req.ServerName
	if req.ServerPort != defaultPort(req.IsSSL) {
		u.Host = net.JoinHostPort(req.ServerName, strconv.Itoa(req.ServerPort))
	}
	if qs, ok := req.Attribute("query_string"); ok {
		u.RawQuery = qs
	}
	major, minor, ok := http.ParseHTTPVersion(req.Protocol)
	if !ok {
		major, minor = 1, 1
	}
	hr := &http.Request{
		Method:     req.Method,
		URL:        u,
		Proto:      req.Protocol,
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     make(http.Header, len(req.Headers)),
		Body:       http.NoBody,
		Host:       u.Host,
		RemoteAddr: req.RemoteAddr,
		RequestURI: u.RequestURI(),
	}
	for _, h := range req.Headers {
		if http.CanonicalHeaderKey(h.Name) == "Host" {
			hr.Host = h.Value
			continue
		}
		hr.Header.Add(h.Name, h.Value)
	}
	if cl := hr.Header.Get("Content-Length"); cl != "" {
		if hr.ContentLength, err = strconv.ParseInt(cl, 10, 64); err != nil {
			return nil, errors.Wrap(err, "content-length")
		}
	}
	if req.IsSSL {
		hr.TLS = &tls.ConnectionState{HandshakeComplete: true}
	}
	return hr, nil
}

// ResponseFromHeader builds a Response from a status code and header.
// Headers are emitted in sorted order.
func ResponseFromHeader(status int, header http.Header) *Response {
	resp := &Response{Status: status, Reason: http.StatusText(status)}
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			resp.Headers = append(resp.Headers, Header{Name: k, Value: v})
		}
	}
	return resp
}

// WriteHTTP copies the headers of resp to w and writes the status.
func (resp *Response) WriteHTTP(w http.ResponseWriter) {
	header := w.Header()
	for _, h := range resp.Headers {
		header.Add(h.Name, h.Value)
	}
	w.WriteHeader(resp.Status)
}
