// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package modbus implements a minimal Modbus TCP client: connect, read
// holding/input registers, and execute a batch of field reads against a
// resolved driver schema.
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ammp-edge/ae-agent/internal/decode"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/model"
)

var (
	ErrResolve     = errors.New("modbus: hostname resolution failed")
	ErrTimedOut    = errors.New("modbus: operation timed out")
	ErrRefused     = errors.New("modbus: connection refused")
	ErrProtocol    = errors.New("modbus: protocol error")
	ErrUnsupported = errors.New("modbus: unsupported function code")
)

const (
	FuncReadHoldingRegisters = 3
	FuncReadInputRegisters   = 4
)

// Client is a single Modbus TCP connection, bound to one unit id and
// register offset for its lifetime.
type Client struct {
	conn           net.Conn
	unitID         byte
	registerOffset int
	timeout        time.Duration
	txID           uint32
}

// Connect dials host:port and returns a ready Client. Hostname
// resolution failures and socket timeouts are distinguished from each
// other and from a plain refusal.
func Connect(host string, port int, unitID int, registerOffset int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolve, addr, err)
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: connecting to %s", ErrTimedOut, addr)
		}
		if isRefused(err) {
			return nil, fmt.Errorf("%w: %s", ErrRefused, addr)
		}
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrProtocol, addr, err)
	}

	return &Client{
		conn:           conn,
		unitID:         byte(unitID),
		registerOffset: registerOffset,
		timeout:        timeout,
	}, nil
}

func isRefused(err error) bool {
	var sysErr *net.OpError
	if errors.As(err, &sysErr) {
		return sysErr.Op == "dial"
	}
	return false
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ReadRegisters reads count 16-bit registers starting at register, via
// function code 3 (holding) or 4 (input).
func (c *Client) ReadRegisters(register int, count int, functionCode int) ([]uint16, error) {
	if functionCode != FuncReadHoldingRegisters && functionCode != FuncReadInputRegisters {
		return nil, fmt.Errorf("%w: fncode %d", ErrUnsupported, functionCode)
	}

	txID := uint16(atomic.AddUint32(&c.txID, 1))

	pdu := make([]byte, 5)
	pdu[0] = byte(functionCode)
	binary.BigEndian.PutUint16(pdu[1:3], uint16(register))
	binary.BigEndian.PutUint16(pdu[3:5], uint16(count))

	frame := make([]byte, 0, 7+1+len(pdu))
	var hdr [7]byte
	binary.BigEndian.PutUint16(hdr[0:2], txID)
	binary.BigEndian.PutUint16(hdr[2:4], 0) // protocol id
	binary.BigEndian.PutUint16(hdr[4:6], uint16(1+len(pdu)))
	hdr[6] = c.unitID
	frame = append(frame, hdr[:]...)
	frame = append(frame, pdu...)

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("%w: setting deadline: %v", ErrProtocol, err)
	}

	if _, err := c.conn.Write(frame); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: writing request", ErrTimedOut)
		}
		return nil, fmt.Errorf("%w: writing request: %v", ErrProtocol, err)
	}

	var respHdr [7]byte
	if _, err := readFull(c.conn, respHdr[:]); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: reading response header", ErrTimedOut)
		}
		return nil, fmt.Errorf("%w: reading response header: %v", ErrProtocol, err)
	}

	respLen := binary.BigEndian.Uint16(respHdr[4:6])
	if respLen < 2 {
		return nil, fmt.Errorf("%w: response length %d too short", ErrProtocol, respLen)
	}

	body := make([]byte, respLen-1) // minus unit id already consumed
	if _, err := readFull(c.conn, body); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: reading response body", ErrTimedOut)
		}
		return nil, fmt.Errorf("%w: reading response body: %v", ErrProtocol, err)
	}

	fc := body[0]
	if fc&0x80 != 0 {
		excCode := byte(0)
		if len(body) > 1 {
			excCode = body[1]
		}
		return nil, fmt.Errorf("%w: exception code %d", ErrProtocol, excCode)
	}
	if int(fc) != functionCode {
		return nil, fmt.Errorf("%w: unexpected function code %d", ErrProtocol, fc)
	}

	byteCount := int(body[1])
	if len(body) < 2+byteCount {
		return nil, fmt.Errorf("%w: truncated register data", ErrProtocol)
	}
	data := body[2 : 2+byteCount]

	regs := make([]uint16, count)
	for i := 0; i < count; i++ {
		regs[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return regs, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadingConfig is one field or status-info to sample in a single
// Execute call: its name plus the resolved FieldOptions driving the
// register read and decode.
type ReadingConfig struct {
	Name     string
	FO       model.FieldOptions
	IsStatus bool
}

// FieldReading is the outcome of executing one ReadingConfig: either a
// decoded value, a decoded status, or an error (logged and skipped by
// the caller).
type FieldReading struct {
	Name   string
	Value  model.RuntimeValue
	Status *model.StatusReading
	Err    error
}

// Execute reads and decodes each job in turn. A failure on one field is
// recorded in its FieldReading and does not stop the remaining fields.
func (c *Client) Execute(jobs []ReadingConfig) []FieldReading {
	out := make([]FieldReading, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, c.executeOne(job))
	}
	return out
}

func (c *Client) executeOne(job ReadingConfig) FieldReading {
	if job.FO.Register == nil {
		return FieldReading{Name: job.Name, Err: fmt.Errorf("modbus: field %q has no register", job.Name)}
	}

	regCount := wordCount(job.FO)
	regs, err := c.ReadRegisters(c.registerOffset+*job.FO.Register, regCount, job.FO.FunctionCode)
	if err != nil {
		log.Warnf("modbus: reading field %q: %v", job.Name, err)
		return FieldReading{Name: job.Name, Err: err}
	}

	raw := RegistersToBytes(regs, job.FO.Order)

	if job.IsStatus {
		sr, err := decode.Status(raw, job.FO)
		if err != nil {
			log.Warnf("modbus: decoding status %q: %v", job.Name, err)
			return FieldReading{Name: job.Name, Err: err}
		}
		return FieldReading{Name: job.Name, Status: &sr}
	}

	v, err := decode.Field(raw, job.FO)
	if err != nil {
		log.Warnf("modbus: decoding field %q: %v", job.Name, err)
		return FieldReading{Name: job.Name, Err: err}
	}
	return FieldReading{Name: job.Name, Value: v}
}

func wordCount(fo model.FieldOptions) int {
	if fo.Words > 0 {
		return fo.Words
	}
	return 1
}
