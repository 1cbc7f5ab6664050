// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

// Command ajpdump decodes a captured stream of AJP packets.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/linkdata/ajp"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// isBodyData guesses whether a packet from the web server is request body
// data. Body packets have no prefix code, so the stream alone cannot tell.
func isBodyData(m *ajp.Message) bool {
	if m.Direction() != ajp.ServerToContainer {
		return false
	}
	if ajp.IsEndOfBody(m) || !m.Code().Known() {
		return true
	}
	n, err := ajp.Uint16(m.Bytes(), ajp.PacketHeaderSize)
	return err == nil && n == m.PayloadLength()-2
}

func describe(w io.Writer, m *ajp.Message) error {
	if isBodyData(m) {
		data, err := ajp.DecodeData(m)
		if err != nil {
			return err
		}
		if data == nil {
			fmt.Fprintln(w, "  end of body")
		} else {
			fmt.Fprintf(w, "  body data, %d bytes\n", len(data))
		}
		return nil
	}
	fmt.Fprintf(w, "  %v", m.Code())
	if m.EncryptionFlag() {
		fmt.Fprintln(w, " (encrypted)")
		return nil
	}
	fmt.Fprintln(w)
	switch m.Code() {
	case ajp.ForwardRequestCode:
		req, err := ajp.DecodeForwardRequest(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s %s %s from %s to %s:%d ssl=%v\n", req.Method, req.URI, req.Protocol, req.RemoteAddr, req.ServerName, req.ServerPort, req.IsSSL)
		for _, h := range req.Headers {
			fmt.Fprintf(w, "  %s: %s\n", h.Name, h.Value)
		}
		for _, a := range req.Attributes {
			fmt.Fprintf(w, "  [%s] %s\n", a.Name, a.Value)
		}
	case ajp.SendHeadersCode:
		resp, err := ajp.DecodeSendHeaders(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %d %s\n", resp.Status, resp.Reason)
		for _, h := range resp.Headers {
			fmt.Fprintf(w, "  %s: %s\n", h.Name, h.Value)
		}
	case ajp.SendBodyChunkCode:
		chunk, err := ajp.DecodeBodyChunk(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  chunk, %d bytes\n", len(chunk))
	case ajp.GetBodyChunkCode:
		n, err := ajp.DecodeGetBodyChunk(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  requested %d bytes\n", n)
	case ajp.EndResponseCode:
		reuse, err := ajp.DecodeEndResponse(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  reuse=%v\n", reuse)
	case ajp.ShutdownCode:
		mode, digest, err := ajp.DecodeShutdown(m)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  mode=%d digest=%s\n", mode, hex.EncodeToString(digest))
	}
	return nil
}

func main() {
	fileName := flag.StringP("file", "f", "-", "capture file to read, - for stdin")
	dumpHex := flag.BoolP("hex", "x", false, "also print every packet as hex")
	flag.Parse()

	var r io.Reader = os.Stdin
	if *fileName != "-" {
		f, err := os.Open(*fileName)
		if err != nil {
			slog.Error("open capture", "file", *fileName, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	m := ajp.NewMessage(ajp.ServerToContainer, ajp.MaxPacketSize)
	for n := 0; ; n++ {
		if _, err := m.ReadFrom(r); err != nil {
			if errors.Cause(err) == io.EOF {
				return
			}
			slog.Error("read packet", "packet", n, "error", err)
			os.Exit(1)
		}
		fmt.Printf("#%d %v %v\n", n, m.Direction(), m)
		if *dumpHex {
			fmt.Print(hex.Dump(m.Bytes()))
		}
		if err := describe(os.Stdout, m); err != nil {
			fmt.Printf("  decode error: %v\n", err)
		}
	}
}
