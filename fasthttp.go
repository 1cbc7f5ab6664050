// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
)

// RequestFromFastHTTP builds a Request from a fasthttp.Request.
// fasthttp does not expose the peer address through the request,
// so RemoteAddr and RemoteHost are left for the caller.
func RequestFromFastHTTP(fr *fasthttp.Request) *Request {
	req := &Request{
		Method:   string(fr.Header.Method()),
		Protocol: string(fr.Header.Protocol()),
		URI:      string(fr.URI().Path()), // fasthttp will normalize the path for us
		IsSSL:    string(fr.URI().Scheme()) == "https",
	}
	host := string(fr.Host())
	req.ServerName, req.ServerPort = splitHostPort(host, defaultPort(req.IsSSL))

	haveHost := false
	haveContentLength := false
	fr.Header.VisitAll(func(k, v []byte) {
		name := string(k)
		switch name {
		case "Host":
			haveHost = true
		case "Content-Length":
			haveContentLength = true
		}
		req.Headers = append(req.Headers, Header{Name: name, Value: string(v)})
	})
	if !haveHost && host != "" {
		req.Headers = append([]Header{{Name: "Host", Value: host}}, req.Headers...)
	}
	if cl := fr.Header.ContentLength(); !haveContentLength && cl > 0 {
		req.Headers = append(req.Headers, Header{Name: "Content-Length", Value: strconv.Itoa(cl)})
	}
	if qs := fr.URI().QueryString(); len(qs) > 0 {
		req.Attributes = append(req.Attributes, Attribute{Name: "query_string", Value: string(qs)})
	}
	return req
}

// ResponseFromFastHTTP builds a Response from the status and headers of a fasthttp.Response.
func ResponseFromFastHTTP(fr *fasthttp.Response) *Response {
	resp := &Response{Status: fr.StatusCode()}
	resp.Reason = http.StatusText(resp.Status)
	fr.Header.VisitAll(func(k, v []byte) {
		resp.Headers = append(resp.Headers, Header{Name: string(k), Value: string(v)})
	})
	return resp
}

// WriteFastResponse sets the status and headers of fr from resp.
func (resp *Response) WriteFastResponse(fr *fasthttp.Response) {
	fr.SetStatusCode(resp.Status)
	for _, h := range resp.Headers {
		fr.Header.Add(h.Name, h.Value)
	}
}
