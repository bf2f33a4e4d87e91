package overlay

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"plot-planner/internal/engine/geometry"
)

// ============================================================
// SVG Renderer
// ============================================================

const (
	plotStroke   = "#1f77b4"
	draftStroke  = "#d62728"
	originStroke = "#2ca02c"
	scaleStroke  = "#ff7f0e"
)

// RenderSVG рисует сцену в размере области отображения.
func RenderSVG(scene Scene) string {
	width, height := scene.Display.Width, scene.Display.Height

	var elements []string
	elements = append(elements, renderPlots(scene.Plots)...)
	if el := renderDraft(scene.Draft, scene.DraftClosed); el != "" {
		elements = append(elements, el)
	}
	elements = append(elements, renderMarkers(scene.Markers)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String()
}

// ============================================================
// Element renderers
// ============================================================

func renderPlots(plots []Polygon) []string {
	var out []string

	for _, p := range plots {
		if len(p.Points) < 3 {
			continue
		}

		var path strings.Builder
		path.WriteString(`<path id="`)
		path.WriteString(escape(p.ID))
		path.WriteString(`" d="`)
		path.WriteString(pathData(p.Points, true))
		path.WriteString(`" fill="` + plotStroke + `" fill-opacity="0.2" stroke="` + plotStroke + `">`)
		if p.Label != "" {
			path.WriteString("<title>")
			path.WriteString(escape(p.Label))
			path.WriteString("</title>")
		}
		path.WriteString("</path>")

		out = append(out, path.String())
	}

	return out
}

func renderDraft(points []geometry.DisplayPoint, closed bool) string {
	if len(points) == 0 {
		return ""
	}
	if len(points) == 1 {
		return circle("draft", points[0], draftStroke)
	}
	return `<path id="draft" d="` + pathData(points, closed) + `" fill="none" stroke="` + draftStroke + `" stroke-dasharray="4 2" />`
}

func renderMarkers(m Markers) []string {
	var out []string

	if m.Origin != nil {
		out = append(out, circle("origin", *m.Origin, originStroke))
	}

	switch len(m.ScaleLine) {
	case 0:
	case 1:
		out = append(out, circle("scale-start", m.ScaleLine[0], scaleStroke))
	default:
		a, b := m.ScaleLine[0], m.ScaleLine[1]
		out = append(out, fmt.Sprintf(`<line id="scale" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="2" />`,
			formatFloat(a.X), formatFloat(a.Y), formatFloat(b.X), formatFloat(b.Y), scaleStroke))
	}

	return out
}

// ============================================================
// Formatting helpers
// ============================================================

func pathData(points []geometry.DisplayPoint, closed bool) string {
	var d strings.Builder
	d.WriteString("M ")
	d.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		d.WriteString(" L ")
		d.WriteString(formatPoint(p))
	}
	if closed {
		d.WriteString(" Z")
	}
	return d.String()
}

func circle(id string, p geometry.DisplayPoint, stroke string) string {
	return fmt.Sprintf(`<circle id="%s" cx="%s" cy="%s" r="4" fill="none" stroke="%s" />`,
		id, formatFloat(p.X), formatFloat(p.Y), stroke)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', 2, 64)
}

func formatPoint(p geometry.DisplayPoint) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
