// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

// sanity check the configuration and the interning tables
func init() {
	if MaxPacketSize < PacketHeaderSize+PacketAlign {
		panic("MaxPacketSize < PacketHeaderSize+PacketAlign")
	}
	if MaxPacketSize > PacketHeaderSize+0xffff {
		panic("MaxPacketSize > PacketHeaderSize+0xffff")
	}
	if MaxPacketSize%PacketAlign != 0 {
		panic("MaxPacketSize not a multiple of PacketAlign")
	}
	if DefaultPacketSize < PacketAlign || DefaultPacketSize > MaxPacketSize {
		panic("DefaultPacketSize outside PacketAlign..MaxPacketSize")
	}
	if Methods.Len() != 27 {
		panic("Methods table must define 27 codes")
	}
	if RequestHeaders.AJP13Len() != 14 {
		panic("RequestHeaders AJP13 ceiling must be 14")
	}
	if ResponseHeaders.AJP13Len() != 11 {
		panic("ResponseHeaders AJP13 ceiling must be 11")
	}
	for _, t := range []*Table{RequestHeaders, ResponseHeaders, Methods, Attributes} {
		if t.Len() >= 0xff {
			panic("table " + t.name + " does not fit in a byte")
		}
	}
	wantAttributes := map[byte]string{
		AttributeQueryString:  "query_string",
		AttributeReqAttribute: "req_attribute",
		AttributeStoredMethod: "stored_method",
	}
	for code, want := range wantAttributes {
		if got, err := ResolveAttributeName(code); err != nil || got != want {
			panic("Attributes table is missing " + want)
		}
	}
}
