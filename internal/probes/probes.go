// Package probes maps (device, probe index) pairs to human names.
package probes

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/Fludizz/WeatherDuino/internal/protocol"
)

type key struct {
	device protocol.DeviceID
	index  int
}

// Names is a read-only lookup table. A nil *Names resolves every probe to
// its index.
type Names struct {
	m map[key]string
}

type file struct {
	Probe []struct {
		Device string `toml:"device"`
		Index  int    `toml:"index"`
		Name   string `toml:"name"`
	} `toml:"probe"`
}

// Load reads a TOML table of the form
//
//	[[probe]]
//	device = "01:02:03"
//	index  = 0
//	name   = "outdoor"
func Load(path string) (*Names, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("probe names %s: %w", path, err)
	}

	n := &Names{m: make(map[key]string, len(f.Probe))}
	for i, p := range f.Probe {
		dev, err := protocol.ParseDeviceID(p.Device)
		if err != nil {
			return nil, fmt.Errorf("probe names %s: entry %d: %w", path, i, err)
		}
		if p.Index < 0 {
			return nil, fmt.Errorf("probe names %s: entry %d: negative index %d", path, i, p.Index)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("probe names %s: entry %d: empty name", path, i)
		}
		n.m[key{dev, p.Index}] = p.Name
	}
	return n, nil
}

// New builds a table from a literal map, mostly for tests.
func New(entries map[protocol.DeviceID]map[int]string) *Names {
	n := &Names{m: make(map[key]string)}
	for dev, byIndex := range entries {
		for idx, name := range byIndex {
			n.m[key{dev, idx}] = name
		}
	}
	return n
}

// Resolve returns the configured name or the decimal index.
func (n *Names) Resolve(dev protocol.DeviceID, index int) string {
	if n != nil {
		if name, ok := n.m[key{dev, index}]; ok {
			return name
		}
	}
	return strconv.Itoa(index)
}

func (n *Names) Len() int {
	if n == nil {
		return 0
	}
	return len(n.m)
}
