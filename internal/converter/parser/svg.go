package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"plot-planner/internal/converter/models"
)

// ============================================================
// SVG Parser
// ============================================================

var ErrNotSVG = errors.New("root element is not <svg>")

// ParseSVG читает документ потоком: порядок элементов сохраняется,
// вложенные <g> обходятся. Трансформации групп не применяются.
func ParseSVG(r io.Reader) (*models.SVGDocument, error) {
	decoder := xml.NewDecoder(r)

	doc := &models.SVGDocument{}
	rootSeen := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !rootSeen {
			if start.Name.Local != "svg" {
				return nil, fmt.Errorf("%w: <%s>", ErrNotSVG, start.Name.Local)
			}
			rootSeen = true
			doc.Width, doc.Height = documentSize(start.Attr)
			continue
		}

		elem, ok := parseElement(start)
		if ok {
			doc.Elements = append(doc.Elements, elem)
		}
	}

	if !rootSeen {
		return nil, ErrNotSVG
	}
	return doc, nil
}

func parseElement(start xml.StartElement) (models.SVGElement, bool) {
	id := attr(start.Attr, "id")
	kind := ClassifyElementByID(id)
	if kind == "" {
		return models.SVGElement{}, false
	}

	elem := models.SVGElement{ID: id, Type: kind}

	switch start.Name.Local {
	case "rect":
		elem.Geometry = models.RectGeometry{
			X:      number(attr(start.Attr, "x")),
			Y:      number(attr(start.Attr, "y")),
			Width:  number(attr(start.Attr, "width")),
			Height: number(attr(start.Attr, "height")),
		}
	case "path":
		elem.Geometry = models.PathGeometry{D: attr(start.Attr, "d")}
	case "polygon", "polyline":
		elem.Geometry = models.PolygonGeometry{Points: attr(start.Attr, "points")}
	default:
		return models.SVGElement{}, false
	}

	return elem, true
}

// ClassifyElementByID: участки размечены как Plot_*, Lot_* или *_plot.
func ClassifyElementByID(id string) string {
	if strings.HasPrefix(id, "Plot_") || strings.HasPrefix(id, "Lot_") {
		return models.KindPlot
	}
	if strings.HasSuffix(id, "_plot") || strings.HasSuffix(id, "_Plot") {
		return models.KindPlot
	}
	return ""
}

// PlotName: имя участка из id без служебных префиксов.
func PlotName(id string) string {
	name := id
	for _, prefix := range []string{"Plot_", "Lot_"} {
		name = strings.TrimPrefix(name, prefix)
	}
	for _, suffix := range []string{"_plot", "_Plot"} {
		name = strings.TrimSuffix(name, suffix)
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return id
	}
	return name
}

// ============================================================
// Attributes
// ============================================================

// documentSize берёт размер из viewBox, иначе из width/height.
func documentSize(attrs []xml.Attr) (float64, float64) {
	if vb := strings.Fields(strings.ReplaceAll(attr(attrs, "viewBox"), ",", " ")); len(vb) == 4 {
		w, errW := strconv.ParseFloat(vb[2], 64)
		h, errH := strconv.ParseFloat(vb[3], 64)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return number(attr(attrs, "width")), number(attr(attrs, "height"))
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// number разбирает длину SVG; "px" допускается, прочие единицы дают 0.
func number(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
