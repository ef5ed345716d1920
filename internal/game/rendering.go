package game

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
)

// ANSI color codes for board rendering
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

const (
	emptySymbol    = "·"
	agentSymbol    = "●"
	goalSymbol     = "◎"
	staticSymbol   = "▲"
	dynamicSymbol  = "✱"
	hiddenDynamic  = emptySymbol
	cellWidthBytes = 16
)

// Render draws the board with ANSI colors. When reveal is false unstruck
// dynamic obstacles are drawn as empty cells, as the agent sees them.
func (e *Environment) Render(reveal bool) string {
	width := e.grid.W
	height := e.grid.H

	var sb strings.Builder
	sb.Grow((width*cellWidthBytes+8)*(height+3) + 128)

	fmt.Fprintf(&sb, "episode %d  step %d/%d  score %.2f  phase %s\n",
		e.episode, e.steps, e.maxSteps, e.score, e.machine.CurrentPhase())

	sb.WriteString("   ")
	for x := 0; x < width; x++ {
		fmt.Fprintf(&sb, "%2d", x)
	}
	sb.WriteString("\n")

	for y := 0; y < height; y++ {
		fmt.Fprintf(&sb, "%2d ", y)
		for x := 0; x < width; x++ {
			e.writeCell(&sb, x, y, reveal)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(agentSymbol + "=droplet " + goalSymbol + "=goal " + staticSymbol + "=obstacle")
	if reveal {
		sb.WriteString(" " + dynamicSymbol + "=dynamic obstacle")
	}
	sb.WriteString("\n")

	return sb.String()
}

func (e *Environment) writeCell(sb *strings.Builder, x, y int, reveal bool) {
	cell, _ := e.grid.Get(x, y)
	here := core.Coordinate{X: x, Y: y}

	switch {
	case e.config.DropletSize.Covers(e.pos, here):
		sb.WriteString(ColorCyan + " " + agentSymbol)
	case here == e.goal:
		sb.WriteString(ColorGreen + " " + goalSymbol)
	case cell.IsStaticObstacle():
		sb.WriteString(ColorGray + " " + staticSymbol)
	case cell.IsDynamicObstacle() && reveal:
		sb.WriteString(ColorPurple + " " + dynamicSymbol)
	case cell.IsDynamicObstacle():
		sb.WriteString(ColorGray + " " + hiddenDynamic)
	default:
		sb.WriteString(ColorGray + " " + emptySymbol)
	}
	sb.WriteString(ColorReset)
}
