package game

// Observation channels
const (
	ChannelAgent  = 0
	ChannelGoal   = 1
	ChannelStatic = 2

	ObservationChannels = 3
)

// Observation is a W×H×3 tensor flattened x-major: the value for cell
// (x, y) and channel c lives at (x*H+y)*3+c. Unstruck dynamic obstacles
// are never marked.
type Observation struct {
	Width  int
	Height int
	Data   []float32
}

// NewObservation allocates an all-zero observation
func NewObservation(w, h int) Observation {
	return Observation{
		Width:  w,
		Height: h,
		Data:   make([]float32, w*h*ObservationChannels),
	}
}

// Index returns the flat offset of (x, y, c)
func (o Observation) Index(x, y, c int) int {
	return (x*o.Height+y)*ObservationChannels + c
}

// At returns the value of (x, y, c)
func (o Observation) At(x, y, c int) float32 {
	return o.Data[o.Index(x, y, c)]
}

func (o Observation) mark(x, y, c int) {
	o.Data[o.Index(x, y, c)] = 1
}

// Shape returns (width, height, channels)
func (o Observation) Shape() [3]int {
	return [3]int{o.Width, o.Height, ObservationChannels}
}

// Clone returns a deep copy
func (o Observation) Clone() Observation {
	data := make([]float32, len(o.Data))
	copy(data, o.Data)
	return Observation{Width: o.Width, Height: o.Height, Data: data}
}

// Equal reports whether both observations have the same shape and values
func (o Observation) Equal(other Observation) bool {
	if o.Width != other.Width || o.Height != other.Height || len(o.Data) != len(other.Data) {
		return false
	}
	for i := range o.Data {
		if o.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}
