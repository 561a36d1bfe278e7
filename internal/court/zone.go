package court

import "fmt"

// Zone is one of the nine cells of a half court, laid out as seen on the
// scoring screen: rows run near/mid/far from the net, columns left/center/right.
type Zone string

// Band is a row of three zones.
type Band string

// Column is a left/center/right third of the court.
type Column string

const (
	NearLeft   Zone = "near_left"
	NearCenter Zone = "near_center"
	NearRight  Zone = "near_right"
	MidLeft    Zone = "mid_left"
	MidCenter  Zone = "mid_center"
	MidRight   Zone = "mid_right"
	FarLeft    Zone = "far_left"
	FarCenter  Zone = "far_center"
	FarRight   Zone = "far_right"
)

const (
	Near Band = "near"
	Mid  Band = "mid"
	Far  Band = "far"
)

const (
	Left   Column = "left"
	Center Column = "center"
	Right  Column = "right"
)

// Zones lists every zone of a half court in row-major order.
var Zones = [9]Zone{
	NearLeft, NearCenter, NearRight,
	MidLeft, MidCenter, MidRight,
	FarLeft, FarCenter, FarRight,
}

var zoneCells = map[Zone]struct {
	band   Band
	column Column
}{
	NearLeft:   {Near, Left},
	NearCenter: {Near, Center},
	NearRight:  {Near, Right},
	MidLeft:    {Mid, Left},
	MidCenter:  {Mid, Center},
	MidRight:   {Mid, Right},
	FarLeft:    {Far, Left},
	FarCenter:  {Far, Center},
	FarRight:   {Far, Right},
}

// Valid reports whether z is one of the nine known zones.
func (z Zone) Valid() bool {
	_, ok := zoneCells[z]
	return ok
}

// Valid reports whether b is one of the three known bands.
func (b Band) Valid() bool {
	return b == Near || b == Mid || b == Far
}

// ParseZone converts a raw identifier into a Zone.
func ParseZone(s string) (Zone, error) {
	z := Zone(s)
	if !z.Valid() {
		return "", fmt.Errorf("unknown court zone %q", s)
	}
	return z, nil
}

// BandOf returns the row a zone belongs to.
func BandOf(z Zone) Band {
	return zoneCells[z].band
}

// ColumnOf returns the left/center/right third a zone belongs to.
func ColumnOf(z Zone) Column {
	return zoneCells[z].column
}

// ZonesInBand returns the three zones of a band, left to right.
func ZonesInBand(b Band) []Zone {
	zones := make([]Zone, 0, 3)
	for _, z := range Zones {
		if zoneCells[z].band == b {
			zones = append(zones, z)
		}
	}
	return zones
}

// IsCross reports whether a shot travels between the left and right thirds.
// Center zones are never part of a cross shot.
func IsCross(hit, receive Zone) bool {
	h, r := ColumnOf(hit), ColumnOf(receive)
	return (h == Left && r == Right) || (h == Right && r == Left)
}
