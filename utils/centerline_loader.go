package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"highway-planner/frenet"
)

// LoadCenterline reads a centerline map file with one "x y s dx dy" record per line,
// separated by whitespace or commas. maxS <= 0 closes the loop with the chord from
// the last sample back to the first.
func LoadCenterline(path string, maxS float64) (*frenet.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ParseCenterline(f, maxS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseCenterline reads centerline records from r. Blank lines and lines starting
// with '#' are skipped, as is a leading header line.
func ParseCenterline(r io.Reader, maxS float64) (*frenet.Map, error) {
	var points []frenet.Waypoint
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: want 5 fields (x y s dx dy), got %d", line, len(fields))
		}

		var v [5]float64
		var perr error
		for i, fld := range fields {
			v[i], perr = strconv.ParseFloat(fld, 64)
			if perr != nil {
				break
			}
		}
		if perr != nil {
			if len(points) == 0 && line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: %w", line, perr)
		}
		points = append(points, frenet.Waypoint{X: v[0], Y: v[1], S: v[2], DX: v[3], DY: v[4]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return frenet.NewMap(points, maxS)
}
