package envserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/experience"
)

const (
	defaultExperienceBatch = 32
	maxExperienceBatch     = 1000
)

// Sampling modes accepted by SampleExperiences
const (
	SampleModeUniform = "uniform"
	SampleModeLatest  = "latest"
	SampleModeFIFO    = "fifo"
)

// ErrExperiencesDisabled is returned by the experience RPCs when the server
// runs without a collector
var ErrExperiencesDisabled = errors.New("experience collection is disabled")

// ExperienceSource is the read side of an experience collector
type ExperienceSource interface {
	Buffer() *experience.Buffer
	ReadPersisted(ctx context.Context, envID string, limit int) ([]*experience.Experience, error)
}

var _ ExperienceSource = (*experience.Collector)(nil)

// SampleExperiences returns a batch from the replay buffer. Mode uniform
// draws with replacement, latest returns the newest entries and fifo
// removes and returns the oldest.
func (s *Server) SampleExperiences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.experiences == nil {
		return nil, toStatus(ErrExperiencesDisabled, "sample experiences")
	}

	count, err := batchSize(req, "count")
	if err != nil {
		return nil, toStatus(err, "sample experiences")
	}
	mode, err := getOptionalString(req, "mode")
	if err != nil {
		return nil, toStatus(err, "sample experiences")
	}
	seed, seeded, err := getInt(req, "seed")
	if err != nil {
		return nil, toStatus(err, "sample experiences")
	}

	if mode == "" {
		mode = SampleModeUniform
	}

	buffer := s.experiences.Buffer()
	var batch []*experience.Experience
	switch mode {
	case SampleModeUniform:
		src := time.Now().UnixNano()
		if seeded {
			src = int64(seed)
		}
		batch = buffer.Sample(count, rand.New(rand.NewSource(src)))
	case SampleModeLatest:
		batch = buffer.GetLatest(count)
	case SampleModeFIFO:
		batch = buffer.Get(count)
	default:
		return nil, toStatus(fmt.Errorf("unknown mode %q: %w", mode, errBadRequest), "sample experiences")
	}

	stats := buffer.Stats()
	log.Debug().
		Str("mode", mode).
		Int("requested", count).
		Int("returned", len(batch)).
		Int("buffer_size", stats.CurrentSize).
		Msg("Sampled experiences")

	bufferStats := &structpb.Struct{Fields: map[string]*structpb.Value{
		"size":          structpb.NewNumberValue(float64(stats.CurrentSize)),
		"capacity":      structpb.NewNumberValue(float64(stats.Capacity)),
		"total_added":   structpb.NewNumberValue(float64(stats.TotalAdded)),
		"total_dropped": structpb.NewNumberValue(float64(stats.TotalDropped)),
	}}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"experiences": experiencesValue(batch),
		"buffer":      structpb.NewStructValue(bufferStats),
	}}, nil
}

// ReadExperiences returns experiences from finished episodes in the
// persistence layer, optionally filtered by env_id
func (s *Server) ReadExperiences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.experiences == nil {
		return nil, toStatus(ErrExperiencesDisabled, "read experiences")
	}

	limit, err := batchSize(req, "limit")
	if err != nil {
		return nil, toStatus(err, "read experiences")
	}
	envID, err := getOptionalString(req, "env_id")
	if err != nil {
		return nil, toStatus(err, "read experiences")
	}

	stored, err := s.experiences.ReadPersisted(ctx, envID, limit)
	if err != nil {
		return nil, toStatus(err, "read experiences")
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"experiences": experiencesValue(stored),
	}}, nil
}

// batchSize reads an optional count in [1, maxExperienceBatch]
func batchSize(req *structpb.Struct, key string) (int, error) {
	n, ok, err := getInt(req, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultExperienceBatch, nil
	}
	if n <= 0 || n > maxExperienceBatch {
		return 0, fmt.Errorf("%s must be in [1, %d], got %d: %w", key, maxExperienceBatch, n, errBadRequest)
	}
	return n, nil
}

func experiencesValue(batch []*experience.Experience) *structpb.Value {
	values := make([]*structpb.Value, len(batch))
	for i, exp := range batch {
		values[i] = experienceValue(exp)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func experienceValue(exp *experience.Experience) *structpb.Value {
	mask := make([]*structpb.Value, len(exp.ActionMask))
	for i, legal := range exp.ActionMask {
		mask[i] = structpb.NewBoolValue(legal)
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"experience_id": structpb.NewStringValue(exp.ID),
		"env_id":        structpb.NewStringValue(exp.EnvID),
		"episode":       structpb.NewNumberValue(float64(exp.Episode)),
		"step":          structpb.NewNumberValue(float64(exp.Step)),
		"state":         tensorValue(exp.State),
		"action":        structpb.NewNumberValue(float64(exp.Action)),
		"action_mask":   structpb.NewListValue(&structpb.ListValue{Values: mask}),
		"reward":        structpb.NewNumberValue(exp.Reward),
		"next_state":    tensorValue(exp.NextState),
		"done":          structpb.NewBoolValue(exp.Done),
		"outcome":       structpb.NewStringValue(exp.Outcome),
		"collision":     structpb.NewBoolValue(exp.Collision),
		"collected_at":  structpb.NewStringValue(exp.CollectedAt.UTC().Format(time.RFC3339Nano)),
	}})
}

func tensorValue(t experience.TensorState) *structpb.Value {
	shape := make([]*structpb.Value, len(t.Shape))
	for i, d := range t.Shape {
		shape[i] = structpb.NewNumberValue(float64(d))
	}
	data := make([]*structpb.Value, len(t.Data))
	for i, v := range t.Data {
		data[i] = structpb.NewNumberValue(float64(v))
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"shape": structpb.NewListValue(&structpb.ListValue{Values: shape}),
		"data":  structpb.NewListValue(&structpb.ListValue{Values: data}),
	}})
}
