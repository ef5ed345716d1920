package rules

import "github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"

// LegalActionMask returns, indexed by direction, whether a move from pos
// can change the droplet's position as far as the agent can observe:
// the target block must be in bounds and free of static obstacles.
// Unstruck dynamic obstacles are invisible and therefore not masked.
func LegalActionMask(g *core.Grid, pos core.Coordinate, size core.Footprint) [core.NumDirections]bool {
	var mask [core.NumDirections]bool
	for _, dir := range core.Directions {
		next := pos.Move(dir)
		if !size.InBounds(g, next) {
			continue
		}
		legal := true
		for _, c := range size.Cells(next) {
			if g.IsStaticObstacle(c.X, c.Y) {
				legal = false
				break
			}
		}
		mask[dir] = legal
	}
	return mask
}
