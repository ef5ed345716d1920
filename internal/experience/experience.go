// Package experience records (state, action, reward, next state) samples
// produced by environments so an external trainer can replay them.
package experience

import (
	"time"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
)

// TensorState is a flattened observation together with its shape
type TensorState struct {
	Shape []int32   `json:"shape"`
	Data  []float32 `json:"data"`
}

// Experience is one recorded transition
type Experience struct {
	ID          string            `json:"experience_id"`
	EnvID       string            `json:"env_id"`
	Episode     int               `json:"episode"`
	Step        int               `json:"step"`
	State       TensorState       `json:"state"`
	Action      int               `json:"action"`
	ActionMask  []bool            `json:"action_mask"`
	Reward      float64           `json:"reward"`
	NextState   TensorState       `json:"next_state"`
	Done        bool              `json:"done"`
	Outcome     string            `json:"outcome,omitempty"`
	Collision   bool              `json:"collision"`
	CollectedAt time.Time         `json:"collected_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToTensorState converts an observation into its serialized form
func ToTensorState(obs game.Observation) TensorState {
	shape := obs.Shape()
	data := make([]float32, len(obs.Data))
	copy(data, obs.Data)
	return TensorState{
		Shape: []int32{int32(shape[0]), int32(shape[1]), int32(shape[2])},
		Data:  data,
	}
}
