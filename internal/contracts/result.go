package contracts

// Stage names the pipeline states in execution order.
type Stage string

const (
	StagePlanning         Stage = "planning"
	StageFlightResearch   Stage = "flight_research"
	StageHotelResearch    Stage = "hotel_research"
	StageActivityPlanning Stage = "activity_planning"
	StageAssembly         Stage = "assembly"
)

// Failure is a stage outcome that produced no usable result. It is data, not
// an error: the orchestrator carries it forward to assembly.
type Failure struct {
	Component     string `json:"component"`
	Reason        string `json:"reason"`
	ProviderError string `json:"provider_error,omitempty"`
}

// StageResult is either a success carrying Value or a Failure.
type StageResult[T any] struct {
	Stage   Stage
	Value   T
	Failure *Failure
}

func Succeeded[T any](stage Stage, v T) StageResult[T] {
	return StageResult[T]{Stage: stage, Value: v}
}

func Failed[T any](stage Stage, f Failure) StageResult[T] {
	return StageResult[T]{Stage: stage, Failure: &f}
}

func (r StageResult[T]) OK() bool {
	return r.Failure == nil
}
