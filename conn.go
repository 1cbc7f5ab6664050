// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Conn moves whole packets over a persistent connection. Writes are
// serialized, reads are not and must come from one goroutine.
type Conn struct {
	io.ReadWriteCloser               // The I/O endpoint, usually a net.Conn
	ReadTimeout        time.Duration // read deadline per packet, none if zero
	WriteTimeout       time.Duration // write deadline per packet, none if zero
	Secure             Secure        // used by ReadSecure and WriteSecure
	Logger             Logger
	wmu                sync.Mutex
	lastPingSent       int64 // Unix nanoseconds
	lastPongRcvd       int64 // Unix nanoseconds
	netLog             atomic.Bool
	serialNumber       uint32
}

var connNextSerialNumber uint32

// NewConn wraps rwc with the default timeouts and logger.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{
		ReadWriteCloser: rwc,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		Logger:          defaultLogger(),
		serialNumber:    atomic.AddUint32(&connNextSerialNumber, 1),
	}
}

func (c *Conn) String() string {
	return fmt.Sprintf("[Conn %x]", c.serialNumber)
}

// NetLog enables or disables logging of every packet at debug level.
func (c *Conn) NetLog(state bool) {
	c.netLog.Store(state)
}

func (c *Conn) logger() Logger {
	if c.Logger == nil {
		return defaultLogger()
	}
	return c.Logger
}

func (c *Conn) setReadDeadline(t time.Time) {
	if rd, ok := c.ReadWriteCloser.(readDeadliner); ok {
		_ = rd.SetReadDeadline(t)
	}
}

func (c *Conn) setWriteDeadline(t time.Time) {
	if wd, ok := c.ReadWriteCloser.(writeDeadliner); ok {
		_ = wd.SetWriteDeadline(t)
	}
}

// ReadMessage reads one packet into m.
func (c *Conn) ReadMessage(m *Message) error {
	if c.ReadTimeout > 0 {
		c.setReadDeadline(time.Now().Add(c.ReadTimeout))
	}
	return c.readMessage(m)
}

func (c *Conn) readMessage(m *Message) error {
	_, err := m.ReadFrom(c.ReadWriteCloser)
	if err != nil {
		return err
	}
	if c.netLog.Load() {
		c.logger().Debug("ajp read", "conn", c.String(), "message", m.String())
	}
	return nil
}

// WriteMessage writes the used region of m.
func (c *Conn) WriteMessage(m *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.WriteTimeout > 0 {
		c.setWriteDeadline(time.Now().Add(c.WriteTimeout))
	}
	if c.netLog.Load() {
		c.logger().Debug("ajp write", "conn", c.String(), "message", m.String())
	}
	_, err := m.WriteTo(c.ReadWriteCloser)
	return err
}

// WriteSecure encrypts everything after the prefix code of m with
// c.Secure and writes it. Without a Secure it is WriteMessage.
func (c *Conn) WriteSecure(m *Message) error {
	if c.Secure != nil {
		m.pos = SecureOffset + 1
		if err := m.Encrypt(c.Secure); err != nil {
			return err
		}
	}
	return c.WriteMessage(m)
}

// ReadSecure reads a packet into m and decrypts it if the SecureFlag is set.
func (c *Conn) ReadSecure(m *Message) error {
	if err := c.ReadMessage(m); err != nil {
		return err
	}
	if m.EncryptionFlag() {
		if c.Secure == nil {
			return malformed("encrypted packet and no Secure configured")
		}
		m.pos = SecureOffset + 1
		if err := m.Decrypt(c.Secure); err != nil {
			return err
		}
		m.pos = PacketHeaderSize
	}
	return nil
}

// Ping sends a CPING_REQUEST and waits for the CPONG_REPLY. Canceling
// ctx aborts the wait if the endpoint supports read deadlines.
func (c *Conn) Ping(ctx context.Context) (d time.Duration, err error) {
	sent := time.Now()
	atomic.StoreInt64(&c.lastPingSent, sent.UnixNano())
	if err = c.WriteMessage(NewCPing()); err != nil {
		return
	}
	deadline := time.Time{}
	if c.ReadTimeout > 0 {
		deadline = time.Now().Add(c.ReadTimeout)
	}
	if dl, ok := ctx.Deadline(); ok && (deadline.IsZero() || dl.Before(deadline)) {
		deadline = dl
	}
	c.setReadDeadline(deadline)
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.setReadDeadline(time.Now())
		close(fired)
	})
	m := MessageAlloc(ContainerToServer)
	defer MessageFree(m)
	err = c.readMessage(m)
	if !stop() {
		<-fired
	}
	// the deadline set here must not outlive the ping
	c.setReadDeadline(time.Time{})
	if err != nil {
		if ctx.Err() != nil {
			err = errors.WithStack(ctx.Err())
		}
		return
	}
	if m.Code() != CPongCode {
		c.logger().Warn("unexpected reply to ping", "conn", c.String(), "code", m.Code())
		return 0, errors.WithStack(UnexpectedTypeError{Want: CPongCode, Got: m.Code()})
	}
	now := time.Now()
	atomic.StoreInt64(&c.lastPongRcvd, now.UnixNano())
	return now.Sub(sent), nil
}

// Latency returns the result of the last successful ping/pong measurement,
// or the zero value if there is no current valid measurement.
func (c *Conn) Latency() (d time.Duration) {
	ping := atomic.LoadInt64(&c.lastPingSent)
	if ping > 0 {
		pong := atomic.LoadInt64(&c.lastPongRcvd)
		if ping <= pong {
			d = time.Nanosecond * time.Duration(pong-ping)
		}
	}
	return
}
