package monome

import "github.com/gridbeam/monome-core/internal/actor"

// Default grid dimensions assumed until /sys/size answers.
const (
	defaultGridWidth  = 16
	defaultGridHeight = 8
)

// Grid is a monome grid controller: raw LED commands, a buffered
// drawing surface with dirty-region flushing, and key/tilt input
// forwarding.
type Grid struct {
	session
	leds *GridLedBuffer
}

func newGrid(info Info, actors *actor.Registry, logger Logger) *Grid {
	g := &Grid{}
	initSession(&g.session, info, actors, logger)

	w, h := info.Width, info.Height
	if w <= 0 {
		w = defaultGridWidth
	}
	if h <= 0 {
		h = defaultGridHeight
	}
	g.leds = NewGridLedBuffer(w, h)

	g.onInput = g.handleInput
	g.onSize = g.resize
	return g
}

// Width returns the grid width, defaulting to 16 until /sys/size answers.
func (g *Grid) Width() int {
	if w := g.Info().Width; w > 0 {
		return w
	}
	return defaultGridWidth
}

// Height returns the grid height, defaulting to 8 until /sys/size answers.
func (g *Grid) Height() int {
	if h := g.Info().Height; h > 0 {
		return h
	}
	return defaultGridHeight
}

// EnableTilt switches a tilt sensor on or off.
func (g *Grid) EnableTilt(sensor int, enable bool) {
	g.send(g.prefixed("/tilt/set"), sensor, enable)
}

// LedSet switches a single LED on or off, bypassing the buffer.
func (g *Grid) LedSet(x, y int, on bool) {
	g.send(g.prefixed("/grid/led/set"), x, y, on)
}

// LedAll switches every LED on or off, bypassing the buffer.
func (g *Grid) LedAll(on bool) {
	g.send(g.prefixed("/grid/led/all"), on)
}

// LedMap writes an 8x8 quadrant from row bitmasks. Offsets are in LED
// units and must be multiples of 8.
func (g *Grid) LedMap(xOffset, yOffset int, rows [8]uint8) {
	args := make([]any, 0, 10)
	args = append(args, xOffset, yOffset)
	for _, row := range rows {
		args = append(args, row)
	}
	g.send(g.prefixed("/grid/led/map"), args...)
}

// LedRow writes one row from bitmask bytes; 16-wide grids take two.
func (g *Grid) LedRow(xOffset, y int, masks ...uint8) {
	args := make([]any, 0, 2+len(masks))
	args = append(args, xOffset, y)
	for _, m := range masks {
		args = append(args, m)
	}
	g.send(g.prefixed("/grid/led/row"), args...)
}

// LedCol writes one column from bitmask bytes; 16-tall grids take two.
func (g *Grid) LedCol(x, yOffset int, masks ...uint8) {
	args := make([]any, 0, 2+len(masks))
	args = append(args, x, yOffset)
	for _, m := range masks {
		args = append(args, m)
	}
	g.send(g.prefixed("/grid/led/col"), args...)
}

// LedLevelSet writes one LED at a brightness level (0-15).
func (g *Grid) LedLevelSet(x, y, level int) {
	g.send(g.prefixed("/grid/led/level/set"), x, y, level)
}

// LedLevelAll writes every LED to the same brightness level.
func (g *Grid) LedLevelAll(level int) {
	g.send(g.prefixed("/grid/led/level/all"), level)
}

// LedLevelMap writes an 8x8 quadrant of individual levels, row-major.
func (g *Grid) LedLevelMap(xOffset, yOffset int, levels [64]uint8) {
	args := make([]any, 0, 66)
	args = append(args, xOffset, yOffset)
	for _, lv := range levels {
		args = append(args, lv)
	}
	g.send(g.prefixed("/grid/led/level/map"), args...)
}

// LedLevelRow writes a row of individual levels.
func (g *Grid) LedLevelRow(xOffset, y int, levels []uint8) {
	args := make([]any, 0, 2+len(levels))
	args = append(args, xOffset, y)
	for _, lv := range levels {
		args = append(args, lv)
	}
	g.send(g.prefixed("/grid/led/level/row"), args...)
}

// LedLevelCol writes a column of individual levels.
func (g *Grid) LedLevelCol(x, yOffset int, levels []uint8) {
	args := make([]any, 0, 2+len(levels))
	args = append(args, x, yOffset)
	for _, lv := range levels {
		args = append(args, lv)
	}
	g.send(g.prefixed("/grid/led/level/col"), args...)
}

// Leds returns the buffered drawing surface. Draw into it, then call
// FlushLeds to transmit the changes.
func (g *Grid) Leds() *GridLedBuffer { return g.leds }

// FlushLeds transmits the dirty quadrants of the LED buffer using
// level map commands, then clears the dirty state. Varibright devices
// render the levels; older hardware treats nonzero as on.
func (g *Grid) FlushLeds() {
	if !g.leds.Dirty() {
		return
	}
	for _, q := range g.leds.DirtyQuadrants() {
		g.LedLevelMap(q.X*QuadrantSize, q.Y*QuadrantSize, g.leds.QuadrantLevels(q.X, q.Y))
	}
	g.leds.ClearDirty()
}

// FlushLedsBinary transmits the dirty quadrants using binary map
// commands, one byte per row.
func (g *Grid) FlushLedsBinary() {
	if !g.leds.Dirty() {
		return
	}
	for _, q := range g.leds.DirtyQuadrants() {
		g.LedMap(q.X*QuadrantSize, q.Y*QuadrantSize, g.leds.QuadrantBitmask(q.X, q.Y))
	}
	g.leds.ClearDirty()
}

// shutdown darkens the grid before closing the sockets.
func (g *Grid) shutdown() {
	if g.Connected() {
		g.LedAll(false)
	}
	g.session.shutdown()
}

func (g *Grid) resize(width, height int) {
	g.leds.Resize(width, height)
}

// handleInput routes device input arriving on the session goroutine.
func (g *Grid) handleInput(addr string, vals []float64) {
	switch {
	case addr == "grid/key" && len(vals) >= 3:
		g.forward(actor.Path("grid/"+g.ID()+"/key"), vals[:3])
	case addr == "tilt" && len(vals) >= 4:
		g.forward(actor.Path("grid/"+g.ID()+"/tilt"), vals[:4])
	}
}
