package monome

import (
	"fmt"
	"strings"
)

// Kind classifies a device by its type string.
type Kind int

const (
	KindUnknown Kind = iota
	KindGrid
	KindArc
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindGrid:
		return "grid"
	case KindArc:
		return "arc"
	default:
		return "unknown"
	}
}

// defaultArcEncoders is assumed when an arc type string carries no count.
const defaultArcEncoders = 4

// Info describes a device as reported by serialoscd, augmented with
// fields learned from /sys responses after connecting.
type Info struct {
	// ID is the device serial, e.g. "m0000123".
	ID string

	// Type is the raw type string, e.g. "monome 128" or "monome arc 4".
	Type string

	// Port is the device's UDP listening port.
	Port int

	// Width and Height are the grid dimensions, 0 for arcs. They are
	// filled in by the /sys/size response after connecting.
	Width  int
	Height int

	// Encoders is the arc's encoder count, 0 for grids.
	Encoders int

	Kind Kind
}

// ParseInfo builds an Info from a serialosc device announcement,
// classifying the type string. Arc strings look like "monome arc 4";
// a bare "arc" with no count defaults to four encoders. Anything else
// containing "monome" is a grid whose size arrives later via /sys/size.
func ParseInfo(id, typ string, port int) Info {
	info := Info{ID: id, Type: typ, Port: port}

	if idx := strings.Index(typ, "arc"); idx >= 0 {
		info.Kind = KindArc
		var count int
		if _, err := fmt.Sscanf(typ[idx:], "arc %d", &count); err == nil {
			info.Encoders = count
		} else {
			info.Encoders = defaultArcEncoders
		}
	} else if strings.Contains(typ, "monome") {
		info.Kind = KindGrid
	}

	return info
}

// IsGrid reports whether the device is a grid.
func (i Info) IsGrid() bool { return i.Kind == KindGrid }

// IsArc reports whether the device is an arc.
func (i Info) IsArc() bool { return i.Kind == KindArc }
