// Package geocell adapts github.com/mmcloughlin/geohash to the cell contract the
// mood feed needs: sortable string cells, range bounds covering a radius, and
// great-circle distance between cells.
package geocell

import (
	"math"
	"sort"
	"strings"

	"github.com/mmcloughlin/geohash"
)

// Precision is the number of geohash characters stored per location
// (roughly 1.2m x 0.6m cells).
const Precision = 10

const earthRadiusMeters = 6371008.8

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// rangeEnd sorts after every geohash character.
const rangeEnd = "~"

// maxPrecision is the longest geohash the package accepts.
const maxPrecision = 12

// Cell is a geohash string. Longer cells are contained in their prefixes, so
// string ordering groups nearby points.
type Cell string

// Range is a half-open [Start, End) interval of cells.
type Range struct {
	Start Cell
	End   Cell
}

// Contains reports whether c falls inside the range.
func (r Range) Contains(c Cell) bool {
	return c >= r.Start && c < r.End
}

// Encode returns the cell for a latitude/longitude pair.
func Encode(lat, lon float64) Cell {
	return Cell(geohash.EncodeWithPrecision(lat, lon, Precision))
}

// Decode returns the center of the cell.
func (c Cell) Decode() (lat, lon float64) {
	return geohash.DecodeCenter(string(c))
}

// Valid reports whether c is a non-empty geohash.
func (c Cell) Valid() bool {
	if c == "" || len(c) > maxPrecision {
		return false
	}
	for _, r := range string(c) {
		if !strings.ContainsRune(base32, r) {
			return false
		}
	}
	return true
}

func (c Cell) String() string { return string(c) }

// QueryBounds returns the ranges of cells whose union covers every point within
// radiusMeters of center. The union is a superset of the disk; callers filter
// candidates by DistanceMeters.
func QueryBounds(center Cell, radiusMeters float64) []Range {
	if !center.Valid() {
		return []Range{{Start: "", End: rangeEnd}}
	}
	lat, _ := center.Decode()
	precision := boundsPrecision(lat, radiusMeters)
	if precision == 0 {
		return []Range{{Start: "", End: rangeEnd}}
	}
	if precision > len(center) {
		precision = len(center)
	}

	hash := string(center)[:precision]
	seen := map[string]struct{}{hash: {}}
	cells := []string{hash}
	for _, n := range geohash.Neighbors(hash) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		cells = append(cells, n)
	}
	sort.Strings(cells)

	ranges := make([]Range, 0, len(cells))
	for _, h := range cells {
		ranges = append(ranges, Range{Start: Cell(h), End: Cell(h + rangeEnd)})
	}
	return ranges
}

// boundsPrecision picks the longest cell whose height and width both span the
// radius, so the center cell and its eight neighbors cover the disk. Widths
// shrink with cos(latitude) and are taken at the most poleward point of the
// disk. Zero means no single precision is coarse enough.
func boundsPrecision(lat, radiusMeters float64) int {
	metersPerDegree := earthRadiusMeters * math.Pi / 180
	edge := math.Min(math.Abs(lat)+radiusMeters/metersPerDegree, 90)
	shrink := math.Cos(toRadians(edge))

	precision := 0
	for n := 1; n <= maxPrecision; n++ {
		latSpan, lonSpan := cellSpanDegrees(n)
		height := latSpan * metersPerDegree
		width := lonSpan * metersPerDegree * shrink
		if math.Min(height, width) < radiusMeters {
			break
		}
		precision = n
	}
	return precision
}

// cellSpanDegrees returns the latitude and longitude extent of a geohash cell
// of n characters. Longitude takes the extra bit when 5n is odd.
func cellSpanDegrees(n int) (lat, lon float64) {
	bits := 5 * n
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / math.Exp2(float64(latBits)), 360 / math.Exp2(float64(lonBits))
}

// DistanceMeters returns the great-circle distance between the centers of a and b.
func DistanceMeters(a, b Cell) float64 {
	lat1, lon1 := a.Decode()
	lat2, lon2 := b.Decode()
	return Haversine(lat1, lon1, lat2, lon2)
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
