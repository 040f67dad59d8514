package params

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Load reads the parameter file at path. The returned Params is always
// fully populated — defaults are applied before parsing, so a missing or
// unreadable file yields a usable (default) Params with parsed==0, and
// callers must treat parsed==0 as "file unusable or empty", suppressing
// persistence so a transient read failure never clobbers a valid on-disk
// state.
//
// Unknown keys are silently skipped. Malformed numeric values leave the
// default already in place for that field rather than aborting the parse.
func Load(path string) (Params, int, error) {
	p := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return p, 0, err
	}
	defer f.Close()

	parsed := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if applyKey(&p, key, val) {
			parsed++
		}
	}
	if err := scanner.Err(); err != nil {
		return p, parsed, err
	}

	if err := p.Normalize(); err != nil {
		// A phase with step_mV==0 came from the file: give it the default
		// step, then normalise again so every other field is clamped too.
		// The file is still usable — report the error but don't force the
		// caller to discard what did parse.
		for i := range p.Phases {
			if p.Phases[i].StepMV == 0 {
				p.Phases[i].StepMV = Defaults().Phases[i].StepMV
			}
		}
		_ = p.Normalize()
		return p, parsed, err
	}
	return p, parsed, nil
}

// parsePhaseKey splits a key like "step3_period_ms" or "phase3_period_ms"
// into a zero-based phase index and the bare suffix ("period_ms"). N==1
// uses bare names (no prefix at all), matching §6: "N=1 uses bare names;
// N>1 uses stepN_ prefix — both forms MUST be accepted" (phaseN_ is
// accepted as an alias for stepN_ for every N). A key without a numbered
// prefix (including "step_mV") is returned as phase 1 with the whole key
// as its suffix.
func parsePhaseKey(key string) (idx int, suffix string, matched bool) {
	var rest string
	switch {
	case strings.HasPrefix(key, "step"):
		rest = key[len("step"):]
	case strings.HasPrefix(key, "phase"):
		rest = key[len("phase"):]
	default:
		return 0, key, true
	}
	if rest == "" || rest[0] < '1' || rest[0] > '9' {
		return 0, key, true
	}
	underscore := strings.IndexByte(rest, '_')
	if underscore < 0 {
		return 0, key, false
	}
	n, err := strconv.Atoi(rest[:underscore])
	if err != nil || n < 1 || n > MaxPhases {
		return 0, key, false
	}
	return n - 1, rest[underscore+1:], true
}

func parseFloat(val string) (float64, bool) {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(val string) (int, bool) {
	v, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// applyKey applies one key=value pair to p, reporting whether the key was
// recognised (and thus counted toward the parsed-value total).
func applyKey(p *Params, key, val string) bool {
	switch key {
	case "repeats":
		v, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return false
		}
		p.Repeats = v
		return true
	case "phases":
		v, ok := parseInt(val)
		if !ok {
			return false
		}
		if v >= 1 && v <= MaxPhases {
			p.NumPhases = v
		}
		return true
	}

	if strings.HasPrefix(key, "calc_") {
		return applyChemistryKey(p, key, val)
	}
	if strings.HasPrefix(key, "tok1_k") {
		if v, ok := parseFloat(val); ok {
			p.Chemistry.Tok1K = v
			return true
		}
		return false
	}
	if strings.HasPrefix(key, "tok2_k") {
		if v, ok := parseFloat(val); ok {
			p.Chemistry.Tok2K = v
			return true
		}
		return false
	}
	if strings.HasPrefix(key, "ch") && len(key) > 2 && key[2] >= '1' && key[2] <= '9' {
		return applyChannelKey(p, key, val)
	}
	if strings.HasPrefix(key, "ao") && len(key) > 2 && key[2] >= '1' && key[2] <= '3' {
		return applyAOKey(p, key, val)
	}
	if strings.HasPrefix(key, "rs485_") || strings.HasPrefix(key, "rtu_") {
		return applyLinkKey(p, key, val)
	}

	idx, suffix, isPhaseKey := parsePhaseKey(key)
	if !isPhaseKey {
		return false
	}
	v, ok := parseInt(val)
	if !ok {
		return false
	}
	ph := &p.Phases[idx]
	switch suffix {
	case "start_mV":
		ph.StartMV = v
	case "end_mV":
		ph.EndMV = v
	case "step_mV":
		ph.StepMV = v
	case "period_ms":
		ph.PeriodMS = v
	case "settle_ms":
		ph.SettleMS = v
	case "pause_ms":
		ph.PauseMS = v
	default:
		return false
	}
	return true
}

func applyChemistryKey(p *Params, key, val string) bool {
	v, ok := parseFloat(val)
	if !ok {
		return false
	}
	c := &p.Chemistry
	switch key {
	case "calc_k_sum":
		c.KSum = v
	case "calc_b_sum":
		c.BSum = v
	case "calc_alpha_c", "calc_filter_size":
		c.AlphaC = v
	case "calc_deadband_acid":
		c.DeadbandAcid = v
	case "calc_deadband_alkali":
		c.DeadbandAlkali = v
	case "calc_ph_neutral":
		c.PHNeutral = v
	case "calc_k_acid":
		c.KAcid = v
	case "calc_b_acid":
		c.BAcid = v
	case "calc_k_alkali":
		c.KAlkali = v
	case "calc_b_alkali":
		c.BAlkali = v
	case "calc_alpha_redox1", "calc_filter_redox1":
		c.AlphaRedox1 = v
	case "calc_alpha_redox2", "calc_filter_redox2":
		c.AlphaRedox2 = v
	default:
		return false
	}
	return true
}

func applyChannelKey(p *Params, key, val string) bool {
	ch := int(key[2] - '1')
	if ch < 0 || ch >= Channels {
		return false
	}
	suffix := key[3:]
	v, ok := parseFloat(val)
	if !ok {
		return false
	}
	switch suffix {
	case "_k":
		p.ChannelScale[ch].K = v
	case "_b":
		p.ChannelScale[ch].B = v
	default:
		return false
	}
	return true
}

func applyAOKey(p *Params, key, val string) bool {
	ao := int(key[2] - '1')
	if ao < 0 || ao >= 3 {
		return false
	}
	suffix := key[3:]
	v, ok := parseFloat(val)
	if !ok {
		return false
	}
	switch suffix {
	case "_source":
		p.AOMap[ao].Source = AOSource(int(v + 0.5))
	case "_min":
		p.AOMap[ao].MinVal = v
	case "_max":
		p.AOMap[ao].MaxVal = v
	default:
		return false
	}
	return true
}

func applyLinkKey(p *Params, key, val string) bool {
	switch key {
	case "rs485_ip":
		p.DACLink.IP = val
		return true
	case "rs485_port":
		if v, ok := parseInt(val); ok {
			p.DACLink.Port = v
			return true
		}
	case "rs485_slave":
		if v, ok := parseInt(val); ok {
			p.DACLink.SlaveID = v
			return true
		}
	case "rtu_port":
		p.RTULink.Device = val
		return true
	case "rtu_baud":
		if v, ok := parseInt(val); ok {
			p.RTULink.Baud = v
			return true
		}
	case "rtu_parity":
		if val != "" {
			switch val[0] {
			case 'N', 'n':
				p.RTULink.Parity = 'N'
			case 'E', 'e':
				p.RTULink.Parity = 'E'
			case 'O', 'o':
				p.RTULink.Parity = 'O'
			default:
				return false
			}
			return true
		}
	case "rtu_data_bit":
		if v, ok := parseInt(val); ok {
			p.RTULink.DataBits = v
			return true
		}
	case "rtu_stop_bit":
		if v, ok := parseInt(val); ok {
			p.RTULink.StopBits = v
			return true
		}
	case "rtu_slave_id":
		if v, ok := parseInt(val); ok {
			p.RTULink.SlaveID = v
			return true
		}
	}
	return false
}
