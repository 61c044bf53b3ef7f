package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names one JSON schema enforced at a stage boundary.
type Schema string

const (
	SchemaPlanningOutput         Schema = "planning_output"
	SchemaFlightResearchInput    Schema = "flight_research_input"
	SchemaFlightResearchOutput   Schema = "flight_research_output"
	SchemaHotelResearchInput     Schema = "hotel_research_input"
	SchemaHotelResearchOutput    Schema = "hotel_research_output"
	SchemaActivityPlanningInput  Schema = "activity_planning_input"
	SchemaActivityPlanningOutput Schema = "activity_planning_output"
)

// ViolationError is returned when a value does not honor its contract.
type ViolationError struct {
	Schema Schema
	Err    error
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s contract violated: %v", e.Schema, e.Err)
}

func (e *ViolationError) Unwrap() error { return e.Err }

func str() map[string]any { return map[string]any{"type": "string"} }
func nonEmpty() map[string]any { return map[string]any{"type": "string", "minLength": 1} }
func date() map[string]any { return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`} }
func money() map[string]any { return map[string]any{"type": "number", "minimum": 0} }
func positive() map[string]any { return map[string]any{"type": "number", "exclusiveMinimum": 0} }
func count(lo int) map[string]any {
	return map[string]any{"type": "integer", "minimum": lo}
}
func optNumber(lo, hi float64) map[string]any {
	return map[string]any{"type": "number", "minimum": lo, "maximum": hi}
}
func tags() map[string]any {
	return map[string]any{"type": "array", "items": str()}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func flightOfferSchema() map[string]any {
	return object(map[string]any{
		"airline":        nonEmpty(),
		"flight_number":  nonEmpty(),
		"departure_time": str(),
		"arrival_time":   str(),
		"stops":          count(0),
		"price":          positive(),
		"booking_url":    str(),
	}, "airline", "flight_number", "price")
}

func hotelOfferSchema() map[string]any {
	return object(map[string]any{
		"name":                    nonEmpty(),
		"address":                 str(),
		"check_in":                str(),
		"check_out":               str(),
		"nightly_rate":            money(),
		"total_cost":              positive(),
		"rating":                  optNumber(0, 5),
		"reviews_count":           count(0),
		"distance_to_interest_km": money(),
		"latitude":                optNumber(-90, 90),
		"longitude":               optNumber(-180, 180),
		"amenities":               tags(),
	}, "name", "address", "total_cost")
}

func anchorSchema() map[string]any {
	return object(map[string]any{
		"name":      nonEmpty(),
		"address":   str(),
		"latitude":  optNumber(-90, 90),
		"longitude": optNumber(-180, 180),
	}, "name", "address")
}

func activitySchema() map[string]any {
	return object(map[string]any{
		"name":                          nonEmpty(),
		"description":                   str(),
		"category":                      str(),
		"cost":                          money(),
		"location":                      str(),
		"latitude":                      optNumber(-90, 90),
		"longitude":                     optNumber(-180, 180),
		"scheduled_time":                str(),
		"estimated_travel_time_minutes": count(0),
	}, "name", "description", "cost", "location")
}

func schemaDocuments() map[Schema]map[string]any {
	return map[Schema]map[string]any{
		SchemaPlanningOutput: object(map[string]any{
			"source":                    nonEmpty(),
			"destination":               nonEmpty(),
			"start_date":                date(),
			"end_date":                  date(),
			"trip_duration":             count(1),
			"num_travelers":             count(1),
			"interests":                 tags(),
			"budget":                    positive(),
			"group_category":            nonEmpty(),
			"currency":                  map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
			"allocated_flight_budget":   money(),
			"allocated_hotel_budget":    money(),
			"allocated_activity_budget": money(),
		}, "source", "destination", "start_date", "end_date", "trip_duration", "num_travelers",
			"budget", "group_category", "allocated_flight_budget", "allocated_hotel_budget", "allocated_activity_budget"),
		SchemaFlightResearchInput: object(map[string]any{
			"source":                  nonEmpty(),
			"destination":             nonEmpty(),
			"start_date":              date(),
			"end_date":                date(),
			"num_travelers":           count(1),
			"total_budget":            positive(),
			"allocated_flight_budget": money(),
		}, "source", "destination", "start_date", "end_date", "num_travelers", "total_budget", "allocated_flight_budget"),
		SchemaFlightResearchOutput: object(map[string]any{
			"source":                   nonEmpty(),
			"destination":              nonEmpty(),
			"start_date":               date(),
			"end_date":                 date(),
			"num_travelers":            count(1),
			"flight":                   flightOfferSchema(),
			"updated_remaining_budget": money(),
		}, "source", "destination", "start_date", "end_date", "num_travelers", "updated_remaining_budget"),
		SchemaHotelResearchInput: object(map[string]any{
			"destination":               nonEmpty(),
			"start_date":                date(),
			"end_date":                  date(),
			"interests":                 tags(),
			"num_travelers":             count(1),
			"group_category":            nonEmpty(),
			"previous_remaining_budget": money(),
			"allocated_hotel_budget":    money(),
		}, "destination", "start_date", "end_date", "num_travelers", "group_category", "previous_remaining_budget"),
		SchemaHotelResearchOutput: object(map[string]any{
			"destination":               nonEmpty(),
			"start_date":                date(),
			"end_date":                  date(),
			"interests":                 tags(),
			"num_travelers":             count(1),
			"group_category":            nonEmpty(),
			"hotel":                     hotelOfferSchema(),
			"previous_remaining_budget": money(),
			"updated_remaining_budget":  money(),
		}, "destination", "start_date", "end_date", "num_travelers", "group_category", "updated_remaining_budget"),
		SchemaActivityPlanningInput: object(map[string]any{
			"destination":               nonEmpty(),
			"interests":                 tags(),
			"group_category":            nonEmpty(),
			"hotel_anchor":              anchorSchema(),
			"previous_remaining_budget": money(),
		}, "destination", "group_category", "hotel_anchor", "previous_remaining_budget"),
		SchemaActivityPlanningOutput: object(map[string]any{
			"destination":               nonEmpty(),
			"interests":                 tags(),
			"group_category":            nonEmpty(),
			"hotel_anchor":              anchorSchema(),
			"activities":                map[string]any{"type": "array", "items": activitySchema()},
			"previous_remaining_budget": money(),
			"final_remaining_budget":    money(),
		}, "destination", "group_category", "hotel_anchor", "activities", "final_remaining_budget"),
	}
}

var (
	compileOnce sync.Once
	compiled    map[Schema]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() (map[Schema]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		docs := schemaDocuments()
		for name, doc := range docs {
			b, err := json.Marshal(doc)
			if err != nil {
				compileErr = fmt.Errorf("marshal %s schema: %w", name, err)
				return
			}
			if err := compiler.AddResource(string(name)+".json", bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("add %s schema: %w", name, err)
				return
			}
		}
		out := make(map[Schema]*jsonschema.Schema, len(docs))
		for name := range docs {
			s, err := compiler.Compile(string(name) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", name, err)
				return
			}
			out[name] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Document returns the raw JSON schema for a contract, for callers that hand
// it to the external planning engine.
func Document(name Schema) (json.RawMessage, error) {
	doc, ok := schemaDocuments()[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return json.Marshal(doc)
}

// Enforce checks v against the named schema after a JSON round trip, so the
// check sees exactly what crosses the boundary.
func Enforce(name Schema, v any) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return &ViolationError{Schema: name, Err: fmt.Errorf("marshal: %w", err)}
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return &ViolationError{Schema: name, Err: fmt.Errorf("unmarshal: %w", err)}
	}
	if err := s.Validate(doc); err != nil {
		return &ViolationError{Schema: name, Err: err}
	}
	return nil
}
