package device

import (
	"fmt"
	"math"
	"time"

	"github.com/simonvetter/modbus"
)

const adcChannels = 8

// ModbusADC samples the 8-channel analog-input module. Each channel is
// published by the module as a big-endian float32 pair of input
// registers, two words apart, starting at address 0 — read one channel at
// a time so a single failing channel never blocks the other seven,
// matching AI_GetFloatValue(fd_io, i, &ai[i], &st) in the original driver.
type ModbusADC struct {
	info   Info
	client *modbus.ModbusClient
}

// DialADC opens a Modbus/TCP connection to the analog-input module at
// ip:port with unit/slave id slaveID.
func DialADC(ip string, port, slaveID int) (*ModbusADC, error) {
	url := fmt.Sprintf("tcp://%s:%d", ip, port)
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("device: adc dial %s: %w", url, err)
	}
	if err := client.SetUnitId(uint8(slaveID)); err != nil {
		return nil, fmt.Errorf("device: adc set unit id: %w", err)
	}
	if err := client.Open(); err != nil {
		return nil, fmt.Errorf("device: adc open %s: %w", url, err)
	}
	return &ModbusADC{info: Info{Name: "adam6717-adc", Addr: url}, client: client}, nil
}

func (a *ModbusADC) GetInfo() Info { return a.info }

func (a *ModbusADC) ReadChannel(channel int) (float64, error) {
	if channel < 0 || channel >= adcChannels {
		return 0, fmt.Errorf("device: invalid adc channel %d", channel)
	}
	regs, err := a.client.ReadRegisters(uint16(channel*2), 2, modbus.INPUT_REGISTER)
	if err != nil {
		return 0, fmt.Errorf("device: adc read channel %d: %w", channel, err)
	}
	bits := uint32(regs[0])<<16 | uint32(regs[1])
	return float64(math.Float32frombits(bits)), nil
}

func (a *ModbusADC) Close() error {
	a.client.Close()
	return nil
}
