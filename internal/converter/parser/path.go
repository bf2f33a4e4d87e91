package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"plot-planner/internal/engine/geometry"
)

// ============================================================
// Path Parser
// ============================================================

var (
	ErrEmptyPath          = errors.New("empty path")
	ErrUnsupportedCommand = errors.New("unsupported path command")
)

var (
	commandRe = regexp.MustCompile(`([MmLlHhVvZzCcSsQqTtAa])([^MmLlHhVvZzCcSsQqTtAa]*)`)
	numberRe  = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)
)

// ParsePath разбирает контур из команд M, L, H, V, Z (абсолютных и относительных).
// Берётся только первый подконтур: всё после его замыкания отбрасывается.
// Кривые не поддерживаются.
func ParsePath(d string) ([]geometry.ImagePoint, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, ErrEmptyPath
	}

	var points []geometry.ImagePoint
	var cur, start geometry.ImagePoint

	for _, match := range commandRe.FindAllStringSubmatch(d, -1) {
		cmd := match[1]
		args := parseCoords(match[2])
		relative := strings.ToLower(cmd) == cmd

		switch strings.ToUpper(cmd) {
		case "M":
			if len(points) > 0 {
				// Второй подконтур (дырка или соседний участок).
				return points, nil
			}
			for i := 0; i+1 < len(args); i += 2 {
				cur = step(cur, args[i], args[i+1], relative)
				if i == 0 {
					start = cur
				}
				// Пары после первой: неявный lineto.
				points = append(points, cur)
			}

		case "L":
			for i := 0; i+1 < len(args); i += 2 {
				cur = step(cur, args[i], args[i+1], relative)
				points = append(points, cur)
			}

		case "H":
			for _, x := range args {
				if relative {
					cur.X += x
				} else {
					cur.X = x
				}
				points = append(points, cur)
			}

		case "V":
			for _, y := range args {
				if relative {
					cur.Y += y
				} else {
					cur.Y = y
				}
				points = append(points, cur)
			}

		case "Z":
			// Контур, уже вернувшийся в начало, повторно не замыкаем.
			if len(points) > 0 && !cur.Equal(start) {
				points = append(points, start)
			}
			return points, nil

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd)
		}
	}

	return points, nil
}

// ParsePoints разбирает атрибут points у <polygon>/<polyline>.
func ParsePoints(s string) ([]geometry.ImagePoint, error) {
	coords := parseCoords(s)
	if len(coords) == 0 {
		return nil, ErrEmptyPath
	}
	if len(coords)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates: %d", len(coords))
	}

	points := make([]geometry.ImagePoint, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		points = append(points, geometry.ImagePoint{X: coords[i], Y: coords[i+1]})
	}
	return points, nil
}

func step(cur geometry.ImagePoint, x, y float64, relative bool) geometry.ImagePoint {
	if relative {
		return geometry.ImagePoint{X: cur.X + x, Y: cur.Y + y}
	}
	return geometry.ImagePoint{X: x, Y: y}
}

// parseCoords: числа через запятую, пробел или слитно ("10-5").
func parseCoords(s string) []float64 {
	var coords []float64
	for _, part := range numberRe.FindAllString(s, -1) {
		val, err := strconv.ParseFloat(part, 64)
		if err == nil {
			coords = append(coords, val)
		}
	}
	return coords
}
