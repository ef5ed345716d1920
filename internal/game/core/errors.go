package core

import "errors"

var (
	ErrOutOfBounds       = errors.New("coordinates out of bounds")
	ErrInvalidDimensions = errors.New("invalid grid dimensions")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidFootprint  = errors.New("invalid droplet footprint")
	ErrInvalidMap        = errors.New("invalid map")
	ErrInvalidCellSymbol = errors.New("invalid cell symbol")
	ErrEpisodeDone       = errors.New("episode is done")
	ErrMapMismatch       = errors.New("map dimensions do not match environment")
)
