package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
)

const DateLayout = "2006-01-02"

type GroupCategory string

const (
	GroupSolo      GroupCategory = "solo"
	GroupCouple    GroupCategory = "couple"
	GroupFamily    GroupCategory = "family"
	GroupGirlsOnly GroupCategory = "Girls only"
	GroupBoysOnly  GroupCategory = "Boys only"
	GroupMixed     GroupCategory = "Boys and Girls both"
	GroupBusiness  GroupCategory = "business"
	GroupStudents  GroupCategory = "students"
	GroupOther     GroupCategory = "other"
)

var groupCategories = []GroupCategory{
	GroupSolo, GroupCouple, GroupFamily, GroupGirlsOnly, GroupBoysOnly,
	GroupMixed, GroupBusiness, GroupStudents, GroupOther,
}

// ParseGroupCategory matches case-insensitively against the known labels.
func ParseGroupCategory(s string) (GroupCategory, bool) {
	s = strings.TrimSpace(s)
	for _, gc := range groupCategories {
		if strings.EqualFold(string(gc), s) {
			return gc, true
		}
	}
	return "", false
}

// Interests is an ordered list of interest tags. It decodes from either a
// JSON list or a comma separated string ("food, forts").
type Interests []string

func (in *Interests) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*in = cleanTags(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("interests must be a list or a comma separated string")
	}
	*in = cleanTags(strings.Split(joined, ","))
	return nil
}

func (in Interests) String() string {
	return strings.Join(in, ", ")
}

func cleanTags(raw []string) Interests {
	out := make(Interests, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// TripRequest is the caller's planning request. It is never modified after
// it has been accepted.
type TripRequest struct {
	Source        string        `json:"source" validate:"required"`
	Destination   string        `json:"destination" validate:"required"`
	StartDate     string        `json:"start_date" validate:"required,isodate"`
	EndDate       string        `json:"end_date" validate:"required,isodate"`
	NumTravelers  int           `json:"num_travelers" validate:"gt=0"`
	Budget        budget.Amount `json:"budget" validate:"gt=0"`
	Interests     Interests     `json:"interests"`
	GroupCategory GroupCategory `json:"group_category" validate:"required,groupcategory"`
	Currency      string        `json:"currency" validate:"required,len=3,alpha"`
}

// Normalize trims free-text fields and canonicalizes enum and currency values.
func (r TripRequest) Normalize() TripRequest {
	r.Source = strings.TrimSpace(r.Source)
	r.Destination = strings.TrimSpace(r.Destination)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if gc, ok := ParseGroupCategory(string(r.GroupCategory)); ok {
		r.GroupCategory = gc
	}
	r.Interests = cleanTags(r.Interests)
	return r
}

// Dates parses start and end dates.
func (r TripRequest) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "start_date", Message: "must be a YYYY-MM-DD date"}
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "end_date", Message: "must be a YYYY-MM-DD date"}
	}
	return start, end, nil
}
