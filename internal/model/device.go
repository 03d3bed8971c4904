package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Device kinds understood by the loader.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Device is a compute target such as "cpu" or "cuda:1".
type Device struct {
	Kind  string
	Index int
}

// CPU is the fallback device.
var CPU = Device{Kind: DeviceCPU}

// ParseDevice parses "cpu", "cuda" or "cuda:N".
func ParseDevice(name string) (Device, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	kind, idx, hasIdx := strings.Cut(name, ":")

	switch kind {
	case DeviceCPU:
		if hasIdx {
			return Device{}, DeviceError("parse device", fmt.Errorf("cpu takes no index: %q", name))
		}
		return CPU, nil
	case DeviceCUDA:
		d := Device{Kind: DeviceCUDA}
		if hasIdx {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return Device{}, DeviceError("parse device", fmt.Errorf("invalid cuda index in %q", name))
			}
			d.Index = n
		}
		return d, nil
	default:
		return Device{}, DeviceError("parse device", fmt.Errorf("unsupported device %q", name))
	}
}

// IsAccelerator reports whether d is not the CPU.
func (d Device) IsAccelerator() bool {
	return d.Kind != DeviceCPU
}

func (d Device) String() string {
	if d.Kind == DeviceCUDA {
		return fmt.Sprintf("%s:%d", d.Kind, d.Index)
	}
	return d.Kind
}
