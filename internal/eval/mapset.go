package eval

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/mapgen"
)

// ErrEmptyMapSet is returned when a map set holds no maps
var ErrEmptyMapSet = errors.New("map set is empty")

// MapEntry is one named map in symbol-row form
type MapEntry struct {
	Name string   `yaml:"name"`
	Rows []string `yaml:"rows"`
}

// MapSet is a fixed collection of evaluation maps. All maps share the
// same dimensions.
type MapSet struct {
	Maps []MapEntry `yaml:"maps"`

	grids []*core.Grid
}

// LoadMapSet reads a YAML map set from disk
func LoadMapSet(path string) (*MapSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map set: %w", err)
	}
	set, err := ParseMapSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// ParseMapSet decodes and validates a YAML map set
func ParseMapSet(data []byte) (*MapSet, error) {
	set := &MapSet{}
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("decode map set: %w", err)
	}
	if err := set.build(); err != nil {
		return nil, err
	}
	return set, nil
}

// GenerateMapSet samples n solvable maps with generator
func GenerateMapSet(generator *mapgen.Generator, n int) (*MapSet, error) {
	if n <= 0 {
		return nil, ErrEmptyMapSet
	}
	set := &MapSet{Maps: make([]MapEntry, 0, n)}
	for i := 0; i < n; i++ {
		grid, err := generator.GenerateMap()
		if err != nil {
			return nil, fmt.Errorf("map %d: %w", i, err)
		}
		set.Maps = append(set.Maps, MapEntry{
			Name: fmt.Sprintf("generated-%04d", i),
			Rows: grid.Rows(),
		})
		set.grids = append(set.grids, grid)
	}
	return set, nil
}

func (s *MapSet) build() error {
	if len(s.Maps) == 0 {
		return ErrEmptyMapSet
	}
	s.grids = make([]*core.Grid, len(s.Maps))
	for i, entry := range s.Maps {
		grid, err := core.ParseGrid(entry.Rows)
		if err != nil {
			return fmt.Errorf("map %q: %w", entry.Name, err)
		}
		if i > 0 && (grid.W != s.grids[0].W || grid.H != s.grids[0].H) {
			return fmt.Errorf("map %q is %dx%d, want %dx%d: %w",
				entry.Name, grid.W, grid.H, s.grids[0].W, s.grids[0].H, core.ErrMapMismatch)
		}
		s.grids[i] = grid
	}
	return nil
}

// Len returns the number of maps
func (s *MapSet) Len() int { return len(s.Maps) }

// Dimensions returns the shared width and height
func (s *MapSet) Dimensions() (int, int) {
	if len(s.grids) == 0 {
		return 0, 0
	}
	return s.grids[0].W, s.grids[0].H
}

// Grid returns a copy of the i-th map
func (s *MapSet) Grid(i int) *core.Grid {
	return s.grids[i].Clone()
}

// Marshal encodes the map set as YAML
func (s *MapSet) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Save writes the map set to path
func (s *MapSet) Save(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode map set: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
