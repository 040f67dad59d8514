// Package loopback is the Sweep Worker's dedicated Modbus/TCP client back
// to the Register Broker. All bank publishing is fire-and-forget: a
// connection drop never blocks the sweep beyond the current step's
// deadline, it just triggers a best-effort reconnect on the next call.
// Control-word reads are the only bank reads the Worker ever performs.
package loopback

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/regbank"
)

const dialTimeout = 1 * time.Second

// Client is a short-timeout Modbus/TCP client to the Broker's loopback
// listener. It reconnects lazily: every call first ensures a live
// connection, attempting one reconnect if the cached client is absent or
// the previous call left it broken.
type Client struct {
	addr   string
	client *modbus.ModbusClient
}

// New returns a Client targeting the Broker's TCP listener at addr
// ("host:port"). No connection is attempted until the first call.
func New(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) ensureOpen() error {
	if c.client != nil {
		return nil
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     "tcp://" + c.addr,
		Timeout: dialTimeout,
	})
	if err != nil {
		return fmt.Errorf("loopback: create client: %w", err)
	}
	if err := client.Open(); err != nil {
		return fmt.Errorf("loopback: open %s: %w", c.addr, err)
	}
	c.client = client
	return nil
}

func (c *Client) breakLocked() {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// WriteWords writes a run of holding registers starting at addr. Failures
// drop the cached connection so the next call reconnects; the caller
// never blocks waiting for a retry here.
func (c *Client) WriteWords(addr int, words []uint16) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if len(words) == 1 {
		if err := c.client.WriteRegister(uint16(addr), words[0]); err != nil {
			c.breakLocked()
			return fmt.Errorf("loopback: write register %d: %w", addr, err)
		}
		return nil
	}
	if err := c.client.WriteRegisters(uint16(addr), words); err != nil {
		c.breakLocked()
		return fmt.Errorf("loopback: write registers %d..%d: %w", addr, addr+len(words), err)
	}
	return nil
}

// WriteFloat32 writes one big-endian float pair at addr.
func (c *Client) WriteFloat32(addr int, v float64) error {
	var b regbank.Bank
	b.SetFloat32(0, v)
	return c.WriteWords(addr, []uint16{b.Words[0], b.Words[1]})
}

// ReadWords reads count holding registers starting at addr.
func (c *Client) ReadWords(addr, count int) ([]uint16, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	words, err := c.client.ReadRegisters(uint16(addr), uint16(count), modbus.HOLDING_REGISTER)
	if err != nil {
		c.breakLocked()
		return nil, fmt.Errorf("loopback: read registers %d..%d: %w", addr, addr+count, err)
	}
	return words, nil
}

// PollControl reads the two-word control register and decodes it. On any
// link error it returns CmdNone rather than propagating — a lost
// loopback connection must never interrupt the sweep, only delay command
// delivery until the link recovers.
func (c *Client) PollControl() regbank.Command {
	words, err := c.ReadWords(regbank.ControlBase, regbank.ControlWords)
	if err != nil {
		return regbank.CmdNone
	}
	return regbank.DecodeControlWords(words)
}

// ClearControl writes the canonical "no command" value back to the
// control word, so a polled command fires exactly once.
func (c *Client) ClearControl() error {
	words := regbank.EncodeControlWords(regbank.CmdNone)
	return c.WriteWords(regbank.ControlBase, words[:])
}

func (c *Client) Close() {
	c.breakLocked()
}
