package device

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/chemistry"
)

const (
	aoSweepRegAddr = 0 // AO0: the ±5V sweep channel
	aoTypeRegBase  = 200
	aoTypePM5V     = 4
	aoType4to20mA  = 1
)

// ModbusDAC drives the analog-output module over Modbus/TCP: channel 0 is
// configured for bipolar ±5V (the sweep channel), channels 1-3 for
// 4-20mA current loops mirroring chemistry results.
type ModbusDAC struct {
	info   Info
	client *modbus.ModbusClient
}

// DialDAC opens a Modbus/TCP connection to the analog-output module at
// ip:port with unit/slave id slaveID, and configures its four output
// channels the same way init_adam6224_ao_types does.
func DialDAC(ip string, port, slaveID int) (*ModbusDAC, error) {
	url := fmt.Sprintf("tcp://%s:%d", ip, port)
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("device: dac dial %s: %w", url, err)
	}
	if err := client.SetUnitId(uint8(slaveID)); err != nil {
		return nil, fmt.Errorf("device: dac set unit id: %w", err)
	}
	if err := client.Open(); err != nil {
		return nil, fmt.Errorf("device: dac open %s: %w", url, err)
	}

	d := &ModbusDAC{info: Info{Name: "adam6224-dac", Addr: url}, client: client}
	if err := d.initAOTypes(); err != nil {
		client.Close()
		return nil, err
	}
	return d, nil
}

func (d *ModbusDAC) initAOTypes() error {
	types := []uint16{aoTypePM5V, aoType4to20mA, aoType4to20mA, aoType4to20mA}
	if err := d.client.WriteRegisters(aoTypeRegBase, types); err != nil {
		return fmt.Errorf("device: init ao types: %w", err)
	}
	return nil
}

func (d *ModbusDAC) GetInfo() Info { return d.info }

func (d *ModbusDAC) WriteSweepVoltage(voltage float64) error {
	code := VoltageToCode(voltage)
	if err := d.client.WriteRegister(aoSweepRegAddr, code); err != nil {
		return fmt.Errorf("device: dac write sweep voltage: %w", err)
	}
	return nil
}

func (d *ModbusDAC) WriteCurrentLoop(channel int, mA float64) error {
	if channel < 1 || channel > 3 {
		return fmt.Errorf("device: invalid current-loop channel %d", channel)
	}
	code := chemistry.MAToCode(mA)
	if err := d.client.WriteRegister(uint16(channel), code); err != nil {
		return fmt.Errorf("device: dac write current loop %d: %w", channel, err)
	}
	return nil
}

func (d *ModbusDAC) Close() error {
	d.client.Close()
	return nil
}
