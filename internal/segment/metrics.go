package segment

import (
	"github.com/ironsheep/plate-ocr/internal/config"
	"github.com/ironsheep/plate-ocr/internal/plate"
)

// lineMetrics holds the size thresholds derived for one text line.
type lineMetrics struct {
	avgHeight float64
	avgWidth  float64

	minBoxWidth          int
	maxBoxWidth          float64
	minHistogramHeight   float64
	minCharHeightPercent float64
	minSpeckleHeight     float64
}

// newLineMetrics derives the average character size from the line height and
// the physical character proportions.
func newLineMetrics(line *plate.TextLine, spec config.LineSpec, seg config.Segmentation) lineMetrics {
	avgH := line.LineHeight
	avgW := 0.0
	if spec.CharHeightMM > 0 {
		avgW = avgH * spec.CharWidthMM / spec.CharHeightMM
	}
	return lineMetrics{
		avgHeight:            avgH,
		avgWidth:             avgW,
		minBoxWidth:          seg.MinBoxWidthPx,
		maxBoxWidth:          avgW * seg.MaxCharWidthRatio,
		minHistogramHeight:   avgH * seg.MinCharHeightPercent,
		minCharHeightPercent: seg.MinCharHeightPercent,
		minSpeckleHeight:     avgH * seg.MinSpeckleHeightPercent,
	}
}

// valid reports whether the line geometry yields usable thresholds.
func (m lineMetrics) valid() bool {
	return m.avgHeight > 0 && m.avgWidth > 0
}
