// Package render turns game snapshots into raw RGB frames for the broadcast
// pipeline. Flat is a minimal scene: phase-colored background plus a timer
// bar, enough to verify the full frame path end to end.
package render

import (
	"github.com/onnwee/quizcast/game"
)

const bytesPerPixel = 3

// Renderer produces one frame per game tick.
type Renderer interface {
	Render(snap *game.Snapshot) []byte
}

type rgb struct{ r, g, b byte }

var phaseColors = map[string]rgb{
	"WAITING":     {24, 24, 32},
	"ASKING":      {18, 38, 74},
	"REVEALING":   {20, 64, 34},
	"LEADERBOARD": {70, 52, 14},
	"THEME_VOTE":  {52, 22, 66},
}

// Flat renders a solid phase-colored frame with a shrinking timer bar along
// the top edge. The single buffer is reused: the returned slice is only valid
// until the next Render call, and the broadcast pipeline copies it at enqueue.
type Flat struct {
	width  int
	height int
	buf    []byte
}

// NewFlat builds a renderer for the given frame size.
func NewFlat(width, height int) *Flat {
	return &Flat{
		width:  width,
		height: height,
		buf:    make([]byte, width*height*bytesPerPixel),
	}
}

// FrameSize returns the byte length of one frame.
func (f *Flat) FrameSize() int { return f.width * f.height * bytesPerPixel }

// Render fills the frame buffer for the snapshot.
func (f *Flat) Render(snap *game.Snapshot) []byte {
	buf := f.buf

	color, ok := phaseColors[snap.State]
	if !ok {
		color = phaseColors["WAITING"]
	}
	if snap.DoublePoints && snap.State == "ASKING" {
		color = rgb{74, 56, 10}
	}
	for i := 0; i < len(buf); i += bytesPerPixel {
		buf[i] = color.r
		buf[i+1] = color.g
		buf[i+2] = color.b
	}

	f.drawTimerBar(buf, snap.TimeFraction)
	return buf
}

// drawTimerBar paints the remaining-time fraction as a white bar across the
// top rows of the frame.
func (f *Flat) drawTimerBar(buf []byte, fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	barWidth := int(float64(f.width) * fraction)
	barHeight := f.height / 60
	if barHeight < 1 {
		barHeight = 1
	}
	for y := 0; y < barHeight; y++ {
		row := y * f.width * bytesPerPixel
		for x := 0; x < barWidth; x++ {
			i := row + x*bytesPerPixel
			buf[i] = 230
			buf[i+1] = 230
			buf[i+2] = 230
		}
	}
}
