package envserver

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/DropletRoutingRL/internal/experience"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/core"
	"github.com/mitchelldurbincs/DropletRoutingRL/internal/game/mapgen"
)

// errBadRequest is wrapped by every request decoding failure
var errBadRequest = errors.New("bad request")

// getString reads a string field
func getString(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("%s is required: %w", key, errBadRequest)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string: %w", key, errBadRequest)
	}
	return s.StringValue, nil
}

// getOptionalString returns "" when the field is absent
func getOptionalString(req *structpb.Struct, key string) (string, error) {
	if _, ok := req.GetFields()[key]; !ok {
		return "", nil
	}
	return getString(req, key)
}

// getNumber reads a numeric field; ok is false when it is absent
func getNumber(req *structpb.Struct, key string) (float64, bool, error) {
	v, present := req.GetFields()[key]
	if !present {
		return 0, false, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, true, fmt.Errorf("%s must be a number: %w", key, errBadRequest)
	}
	return n.NumberValue, true, nil
}

// getInt reads an integral numeric field
func getInt(req *structpb.Struct, key string) (int, bool, error) {
	f, present, err := getNumber(req, key)
	if err != nil || !present {
		return 0, present, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, true, fmt.Errorf("%s must be an integer, got %v: %w", key, f, errBadRequest)
	}
	return int(f), true, nil
}

// requireInt is getInt for a mandatory field
func requireInt(req *structpb.Struct, key string) (int, error) {
	v, ok, err := getInt(req, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%s is required: %w", key, errBadRequest)
	}
	return v, nil
}

// getRows reads a list of strings, nil when the field is absent or null
func getRows(req *structpb.Struct, key string) ([]string, error) {
	v, present := req.GetFields()[key]
	if !present {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s must be a list of strings: %w", key, errBadRequest)
	}
	rows := make([]string, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string: %w", key, i, errBadRequest)
		}
		rows = append(rows, s.StringValue)
	}
	return rows, nil
}

// observationValue encodes an observation as a flat list of numbers
func observationValue(obs game.Observation) *structpb.Value {
	values := make([]*structpb.Value, len(obs.Data))
	for i, v := range obs.Data {
		values[i] = structpb.NewNumberValue(float64(v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

// shapeValue encodes (width, height, channels)
func shapeValue(shape [3]int) *structpb.Value {
	return structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
		structpb.NewNumberValue(float64(shape[0])),
		structpb.NewNumberValue(float64(shape[1])),
		structpb.NewNumberValue(float64(shape[2])),
	}})
}

// coordinateValue encodes {x, y}
func coordinateValue(c core.Coordinate) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"x": structpb.NewNumberValue(float64(c.X)),
		"y": structpb.NewNumberValue(float64(c.Y)),
	}})
}

// stepResponse converts a step result into its wire form
func stepResponse(res game.StepResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"observation": observationValue(res.Observation),
		"shape":       shapeValue(res.Observation.Shape()),
		"reward":      structpb.NewNumberValue(res.Reward),
		"done":        structpb.NewBoolValue(res.Done),
		"outcome":     structpb.NewStringValue(string(res.Outcome)),
		"step":        structpb.NewNumberValue(float64(res.Step)),
		"position":    coordinateValue(res.Position),
	}
	if res.Collision != nil {
		fields["collision"] = coordinateValue(res.Collision.Position)
	}
	return &structpb.Struct{Fields: fields}
}

// resetResponse converts a fresh observation into its wire form
func resetResponse(obs game.Observation, step int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"observation": observationValue(obs),
		"shape":       shapeValue(obs.Shape()),
		"step":        structpb.NewNumberValue(float64(step)),
	}}
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)

	var code codes.Code
	switch {
	case errors.Is(err, ErrEnvNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrAtCapacity), errors.Is(err, mapgen.ErrGenerationExhausted):
		code = codes.ResourceExhausted
	case errors.Is(err, core.ErrEpisodeDone),
		errors.Is(err, ErrExperiencesDisabled),
		errors.Is(err, experience.ErrNoPersistence):
		code = codes.FailedPrecondition
	case errors.Is(err, core.ErrInvalidAction),
		errors.Is(err, core.ErrInvalidMap),
		errors.Is(err, core.ErrMapMismatch),
		errors.Is(err, core.ErrInvalidCellSymbol),
		errors.Is(err, core.ErrInvalidDimensions),
		errors.Is(err, core.ErrInvalidFootprint),
		errors.Is(err, game.ErrInvalidConfig),
		errors.Is(err, errBadRequest):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	return status.Errorf(code, "%s: %v", msg, err)
}
