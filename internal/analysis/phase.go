package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait pairs two recorded columns of a trajectory, such as the pole
// angle and its rate.
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []Point
}

// NewPhasePortrait zips xs and ys, which must have the same length.
func NewPhasePortrait(xLabel string, xs []float64, yLabel string, ys []float64) (*PhasePortrait, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x samples, %d y samples", dynamo.ErrDimensionMismatch, len(xs), len(ys))
	}
	p := &PhasePortrait{XLabel: xLabel, YLabel: yLabel, Points: make([]Point, len(xs))}
	for i := range xs {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// Crossings returns the points recorded when column x crosses threshold
// upwards, a Poincaré section of the trajectory.
func (portrait *PhasePortrait) Crossings(threshold float64) []Point {
	out := make([]Point, 0)
	for i := 1; i < len(portrait.Points); i++ {
		prev, cur := portrait.Points[i-1], portrait.Points[i]
		if prev.X < threshold && cur.X >= threshold {
			out = append(out, cur)
		}
	}
	return out
}

// ASCII draws the portrait on a width by height character grid, with the
// axes where they cross the visible area.
func (portrait *PhasePortrait) ASCII(width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
