package simulation

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Query parameter names accepted by ParseQuery.
const (
	ParamDelay        = "delay"
	ParamCPULoad      = "cpuLoad"
	ParamMemoryStress = "memoryStress"
	ParamJitter       = "jitter"
	ParamPreset       = "preset"
)

// ParseQuery reads simulation parameters from a query string. Absent
// parameters keep their value from base; present ones must be integers.
func ParseQuery(values url.Values, base Params) (Params, error) {
	p := base

	if err := parseInt(values, ParamDelay, 32, func(v int64) { p.Delay = int(v) }); err != nil {
		return Params{}, err
	}
	if err := parseInt(values, ParamCPULoad, 64, func(v int64) { p.CPULoad = v }); err != nil {
		return Params{}, err
	}
	if err := parseInt(values, ParamMemoryStress, 32, func(v int64) { p.MemoryStress = int(v) }); err != nil {
		return Params{}, err
	}
	if err := parseInt(values, ParamJitter, 32, func(v int64) { p.Jitter = int(v) }); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Encode renders p as a query string understood by ParseQuery. Zero
// fields are omitted.
func (p Params) Encode() string {
	values := url.Values{}
	if p.Delay != 0 {
		values.Set(ParamDelay, strconv.Itoa(p.Delay))
	}
	if p.CPULoad != 0 {
		values.Set(ParamCPULoad, strconv.FormatInt(p.CPULoad, 10))
	}
	if p.MemoryStress != 0 {
		values.Set(ParamMemoryStress, strconv.Itoa(p.MemoryStress))
	}
	if p.Jitter != 0 {
		values.Set(ParamJitter, strconv.Itoa(p.Jitter))
	}
	return values.Encode()
}

func parseInt(values url.Values, name string, bitSize int, set func(int64)) error {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, bitSize)
	if err != nil {
		return errors.Wrapf(ErrInvalidParams, "%s %q is not an integer", name, raw)
	}
	set(v)
	return nil
}
