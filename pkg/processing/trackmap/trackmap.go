// Package trackmap projects raw track coordinates into a viewport.
package trackmap

import "github.com/f1plots/f1dash-service-manager-go/pkg/model"

// Point is a raw track position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection maps raw (x,y) track positions into a width x height viewport.
// A single uniform scale is used for both axes, the track shape is never
// distorted. The projected extent is centered in the viewport and the
// y-axis is inverted (data up, screen down).
type Projection struct {
	scale    float64
	offsetX  float64
	offsetY  float64
	xMin     float64
	yMax     float64
	identity bool
}

// NewProjection computes the projection for the bounding extents of the
// given points. Degenerate input (no points, zero-extent bounds, empty
// viewport) short-circuits to an identity projection.
func NewProjection(points []Point, width, height float64) Projection {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return Projection{identity: true}
	}
	xMin, xMax := points[0].X, points[0].X
	yMin, yMax := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		if p.X < xMin {
			xMin = p.X
		}
		if p.X > xMax {
			xMax = p.X
		}
		if p.Y < yMin {
			yMin = p.Y
		}
		if p.Y > yMax {
			yMax = p.Y
		}
	}
	dataWidth := xMax - xMin
	dataHeight := yMax - yMin
	if dataWidth == 0 || dataHeight == 0 {
		return Projection{identity: true}
	}

	dataAspect := dataWidth / dataHeight
	viewAspect := width / height
	var scale float64
	if dataAspect > viewAspect {
		scale = width / dataWidth
	} else {
		scale = height / dataHeight
	}
	return Projection{
		scale:   scale,
		offsetX: (width - dataWidth*scale) / 2,
		offsetY: (height - dataHeight*scale) / 2,
		xMin:    xMin,
		yMax:    yMax,
	}
}

// Project maps a raw position into the viewport. The identity projection
// returns the input unchanged.
func (p Projection) Project(x, y float64) (px, py float64) {
	if p.identity {
		return x, y
	}
	return p.offsetX + (x-p.xMin)*p.scale, p.offsetY + (p.yMax-y)*p.scale
}

// Scale returns the uniform scale factor (0 for the identity projection).
func (p Projection) Scale() float64 {
	if p.identity {
		return 0
	}
	return p.scale
}

func (p Projection) IsIdentity() bool {
	return p.identity
}

// PointsFromLaps collects the union of positions across the given laps.
// Samples without position data are skipped.
func PointsFromLaps(laps ...*model.LapTelemetry) []Point {
	ret := []Point{}
	for _, lap := range laps {
		if lap == nil {
			continue
		}
		for i := range lap.Samples {
			if !lap.Samples[i].HasPosition() {
				continue
			}
			ret = append(ret, Point{X: *lap.Samples[i].X, Y: *lap.Samples[i].Y})
		}
	}
	return ret
}
