package pipeline

import (
	"math"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/models"
)

var daySlots = []time.Duration{9 * time.Hour, 13 * time.Hour, 18 * time.Hour}

const (
	earthRadiusKm    = 6371.0
	cityTravelKmh    = 25.0
	minTravelMinutes = 5

	// Busy days spread their activities evenly across this window.
	dayStart  = 9 * time.Hour
	dayWindow = 12 * time.Hour
)

// schedule gives every activity without a provider time a slot, filling
// three slots per trip day from the start date, and estimates travel time
// from the anchor where both ends have coordinates. When there are more
// activities than slots, each day takes an even share spaced across the day.
func schedule(items []contracts.ActivityItem, start time.Time, days int, anchor contracts.HotelAnchor) {
	if days < 1 {
		days = 1
	}
	var pending []int
	for i := range items {
		if items[i].ScheduledTime == nil {
			pending = append(pending, i)
		}
	}
	perDay := len(daySlots)
	if len(pending) > perDay*days {
		perDay = (len(pending) + days - 1) / days
	}
	for k, idx := range pending {
		day, pos := k/perDay, k%perDay
		offset := dayStart + time.Duration(pos)*dayWindow/time.Duration(perDay)
		if perDay == len(daySlots) {
			offset = daySlots[pos]
		}
		items[idx].ScheduledTime = models.NewLocalTime(start.AddDate(0, 0, day).Add(offset))
	}

	for i := range items {
		item := &items[i]
		if item.EstimatedTravelTimeMinutes == nil {
			if minutes, ok := travelMinutes(anchor, item); ok {
				item.EstimatedTravelTimeMinutes = &minutes
			}
		}
	}
}

func travelMinutes(anchor contracts.HotelAnchor, item *contracts.ActivityItem) (int, bool) {
	if anchor.Latitude == nil || anchor.Longitude == nil || item.Latitude == nil || item.Longitude == nil {
		return 0, false
	}
	km := haversineKm(*anchor.Latitude, *anchor.Longitude, *item.Latitude, *item.Longitude)
	minutes := int(math.Ceil(km / cityTravelKmh * 60))
	if minutes < minTravelMinutes {
		minutes = minTravelMinutes
	}
	return minutes, true
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
