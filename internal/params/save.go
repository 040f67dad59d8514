package params

import (
	"fmt"
	"os"
	"strings"
)

// SaveAtomic writes p to path via a temp-file-and-rename so that readers
// never observe a partially written file. Comments re-emitted are purely
// informational; Load tolerates their absence.
func SaveAtomic(path string, p Params) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# iterctl parameters\n")
	fmt.Fprintf(&b, "repeats=%d\n", p.Repeats)
	fmt.Fprintf(&b, "phases=%d\n\n", p.NumPhases)

	for i := 0; i < MaxPhases; i++ {
		prefix := ""
		if i > 0 {
			prefix = fmt.Sprintf("step%d_", i+1)
		}
		ph := p.Phases[i]
		fmt.Fprintf(&b, "%sstart_mV=%d\n", prefix, ph.StartMV)
		fmt.Fprintf(&b, "%send_mV=%d\n", prefix, ph.EndMV)
		fmt.Fprintf(&b, "%sstep_mV=%d\n", prefix, ph.StepMV)
		fmt.Fprintf(&b, "%speriod_ms=%d\n", prefix, ph.PeriodMS)
		fmt.Fprintf(&b, "%ssettle_ms=%d\n", prefix, ph.SettleMS)
		fmt.Fprintf(&b, "%spause_ms=%d\n\n", prefix, ph.PauseMS)
	}

	fmt.Fprintf(&b, "# channel scaling\n")
	for i := 0; i < Channels; i++ {
		fmt.Fprintf(&b, "ch%d_k=%.6g\n", i+1, p.ChannelScale[i].K)
		fmt.Fprintf(&b, "ch%d_b=%.6g\n", i+1, p.ChannelScale[i].B)
	}

	c := p.Chemistry
	fmt.Fprintf(&b, "\n# chemistry\n")
	fmt.Fprintf(&b, "calc_k_sum=%.6g\n", c.KSum)
	fmt.Fprintf(&b, "calc_b_sum=%.6g\n", c.BSum)
	fmt.Fprintf(&b, "calc_alpha_c=%.6g\n", c.AlphaC)
	fmt.Fprintf(&b, "calc_deadband_acid=%.6g\n", c.DeadbandAcid)
	fmt.Fprintf(&b, "calc_deadband_alkali=%.6g\n", c.DeadbandAlkali)
	fmt.Fprintf(&b, "calc_ph_neutral=%.6g\n", c.PHNeutral)
	fmt.Fprintf(&b, "calc_k_acid=%.6g\n", c.KAcid)
	fmt.Fprintf(&b, "calc_b_acid=%.6g\n", c.BAcid)
	fmt.Fprintf(&b, "calc_k_alkali=%.6g\n", c.KAlkali)
	fmt.Fprintf(&b, "calc_b_alkali=%.6g\n", c.BAlkali)
	fmt.Fprintf(&b, "calc_alpha_redox1=%.6g\n", c.AlphaRedox1)
	fmt.Fprintf(&b, "calc_alpha_redox2=%.6g\n", c.AlphaRedox2)
	fmt.Fprintf(&b, "tok1_k=%.6g\n", c.Tok1K)
	fmt.Fprintf(&b, "tok2_k=%.6g\n", c.Tok2K)

	fmt.Fprintf(&b, "\n# analog outputs\n")
	for i := 0; i < 3; i++ {
		ao := p.AOMap[i]
		fmt.Fprintf(&b, "ao%d_source=%d\n", i+1, int(ao.Source))
		fmt.Fprintf(&b, "ao%d_min=%.6g\n", i+1, ao.MinVal)
		fmt.Fprintf(&b, "ao%d_max=%.6g\n", i+1, ao.MaxVal)
	}

	fmt.Fprintf(&b, "\n# DAC link\n")
	fmt.Fprintf(&b, "rs485_ip=%s\n", p.DACLink.IP)
	fmt.Fprintf(&b, "rs485_port=%d\n", p.DACLink.Port)
	fmt.Fprintf(&b, "rs485_slave=%d\n", p.DACLink.SlaveID)

	fmt.Fprintf(&b, "\n# RTU link\n")
	fmt.Fprintf(&b, "rtu_port=%s\n", p.RTULink.Device)
	fmt.Fprintf(&b, "rtu_baud=%d\n", p.RTULink.Baud)
	fmt.Fprintf(&b, "rtu_parity=%c\n", p.RTULink.Parity)
	fmt.Fprintf(&b, "rtu_data_bit=%d\n", p.RTULink.DataBits)
	fmt.Fprintf(&b, "rtu_stop_bit=%d\n", p.RTULink.StopBits)
	fmt.Fprintf(&b, "rtu_slave_id=%d\n", p.RTULink.SlaveID)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("params: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("params: rename temp file: %w", err)
	}
	return nil
}
