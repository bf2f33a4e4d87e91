package overlay

import (
	"plot-planner/internal/engine/capture"
	"plot-planner/internal/engine/geometry"

	"github.com/peterstace/simplefeatures/rtree"
)

// ============================================================
// Hit Index
// ============================================================

// Index ищет сохранённый участок под точкой изображения.
// Кандидаты отбираются по R-дереву ограничивающих прямоугольников,
// затем проверяются лучом.
type Index struct {
	tree  *rtree.RTree
	plots []capture.SavedPlot
}

func NewIndex(plots []capture.SavedPlot) *Index {
	items := make([]rtree.BulkItem, 0, len(plots))
	kept := make([]capture.SavedPlot, 0, len(plots))

	for _, p := range plots {
		b, ok := geometry.RingBounds(p.Ring)
		if !ok {
			continue
		}
		items = append(items, rtree.BulkItem{
			Box:      rtree.Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY},
			RecordID: len(kept),
		})
		kept = append(kept, p)
	}

	return &Index{tree: rtree.BulkLoad(items), plots: kept}
}

func (i *Index) Len() int {
	return len(i.plots)
}

// At возвращает участок, содержащий точку. При перекрытии побеждает
// участок, сохранённый позже.
func (i *Index) At(p geometry.ImagePoint) (capture.SavedPlot, bool) {
	best := -1
	box := rtree.Box{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}

	_ = i.tree.RangeSearch(box, func(id int) error {
		if id > best && geometry.RingContains(i.plots[id].Ring, p) {
			best = id
		}
		return nil
	})

	if best < 0 {
		return capture.SavedPlot{}, false
	}
	return i.plots[best], true
}

// Within возвращает участки, чьи прямоугольники пересекают область.
func (i *Index) Within(b geometry.Bounds) []capture.SavedPlot {
	var out []capture.SavedPlot
	_ = i.tree.RangeSearch(rtree.Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}, func(id int) error {
		out = append(out, i.plots[id])
		return nil
	})
	return out
}
