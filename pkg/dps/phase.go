package dps

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// PhaseCode is the mapping code of the packed voltage/current/power report.
const PhaseCode = "phase_a"

// minPhaseBytes covers the voltage (16 bit) and current (24 bit) fields.
const minPhaseBytes = 5

// Fixed divisors from raw field units to engineering units.
const (
	voltageDivisor = 10   // 0.1 V
	currentDivisor = 1000 // 0.001 A
	powerDivisor   = 1000 // 0.001 kW
)

// PhaseReading is one decoded phase record.
type PhaseReading struct {
	Voltage float64 `json:"voltage_v"`
	Current float64 `json:"current_a"`
	Power   float64 `json:"power_kw"`
}

// LoadPercent returns the current as a percentage of the contracted current.
func (r PhaseReading) LoadPercent(contractedAmps float64) float64 {
	if contractedAmps <= 0 {
		return 0
	}
	return r.Current / contractedAmps * 100
}

// DecodePhase unpacks a base64 phase record. Voltage is bits [0,16), current
// bits [16,40) and power the last 24 bits of the decoded bytes, all unsigned
// big-endian. The record length is not validated beyond the 40 bits the first
// two fields need, so longer blobs still yield their trailing power field.
func DecodePhase(value string) (PhaseReading, error) {
	b, err := decodeBase64(value)
	if err != nil {
		return PhaseReading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(b) < minPhaseBytes {
		return PhaseReading{}, fmt.Errorf("%w: got %d bits, need at least %d", ErrMalformedPacket, len(b)*8, minPhaseBytes*8)
	}

	voltage := uint32(b[0])<<8 | uint32(b[1])
	current := uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	tail := b[len(b)-3:]
	power := uint32(tail[0])<<16 | uint32(tail[1])<<8 | uint32(tail[2])

	return PhaseReading{
		Voltage: float64(voltage) / voltageDivisor,
		Current: float64(current) / currentDivisor,
		Power:   float64(power) / powerDivisor,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if len(s)%4 != 0 {
		if rb, rerr := base64.RawStdEncoding.DecodeString(s); rerr == nil {
			return rb, nil
		}
	}
	return nil, err
}
