package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

const (
	geoapifyBaseURL   = "https://api.geoapify.com"
	geoapifyName      = "geoapify"
	searchRadiusM     = 5000
	maxActivityPlaces = 20
)

// interestCategories maps free-text interests to Geoapify place categories.
var interestCategories = map[string]string{
	"food":        "catering.restaurant",
	"restaurants": "catering.restaurant",
	"cafe":        "catering.cafe",
	"nightlife":   "entertainment",
	"museums":     "entertainment.museum",
	"museum":      "entertainment.museum",
	"history":     "tourism.sights",
	"forts":       "tourism.sights.fort",
	"temples":     "tourism.sights.place_of_worship",
	"beaches":     "beach",
	"nature":      "natural",
	"parks":       "leisure.park",
	"shopping":    "commercial.shopping_mall",
	"art":         "entertainment.culture",
	"sightseeing": "tourism.attraction",
}

const defaultActivityCategory = "tourism.attraction"

// Geoapify finds places of interest around the hotel anchor.
type Geoapify struct {
	client          *Client
	apiKey          string
	costPerTraveler budget.Amount
}

func NewGeoapify(apiKey string, cfg ClientConfig) (*Geoapify, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("geoapify: GEOAPIFY_KEY required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = geoapifyBaseURL
	}
	cfg.Name = geoapifyName
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Geoapify{client: client, apiKey: apiKey, costPerTraveler: budget.Units(30)}, nil
}

type geoapifyFeatures struct {
	Features []struct {
		Properties struct {
			Name       string   `json:"name"`
			Formatted  string   `json:"formatted"`
			AddressOne string   `json:"address_line1"`
			Categories []string `json:"categories"`
			Lat        float64  `json:"lat"`
			Lon        float64  `json:"lon"`
		} `json:"properties"`
	} `json:"features"`
}

func (g *Geoapify) geocode(ctx context.Context, text string) (float64, float64, error) {
	var resp geoapifyFeatures
	params := url.Values{"text": {text}, "limit": {"1"}, "apiKey": {g.apiKey}}
	if err := g.client.GetJSON(ctx, "geocode", "/v1/geocode/search", params, &resp); err != nil {
		return 0, 0, err
	}
	if len(resp.Features) == 0 {
		return 0, 0, &ProviderError{Provider: geoapifyName, Op: "geocode", Err: fmt.Errorf("%q: %w", text, ErrNoResults)}
	}
	p := resp.Features[0].Properties
	return p.Lat, p.Lon, nil
}

func categoriesFor(interests []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, in := range interests {
		cat, ok := interestCategories[strings.ToLower(strings.TrimSpace(in))]
		if !ok {
			cat = defaultActivityCategory
		}
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	if len(out) == 0 {
		out = append(out, defaultActivityCategory)
	}
	return out
}

func (g *Geoapify) SearchActivities(ctx context.Context, q ActivityQuery) ([]contracts.ActivityItem, error) {
	var lat, lon float64
	if q.Anchor.Latitude != nil && q.Anchor.Longitude != nil {
		lat, lon = *q.Anchor.Latitude, *q.Anchor.Longitude
	} else {
		text := q.Anchor.Address
		if text == "" {
			text = q.Destination
		}
		var err error
		if lat, lon, err = g.geocode(ctx, text); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"categories": {strings.Join(categoriesFor(q.Interests), ",")},
		"filter":     {fmt.Sprintf("circle:%f,%f,%d", lon, lat, searchRadiusM)},
		"bias":       {fmt.Sprintf("proximity:%f,%f", lon, lat)},
		"limit":      {fmt.Sprint(maxActivityPlaces)},
		"apiKey":     {g.apiKey},
	}
	var resp geoapifyFeatures
	if err := g.client.GetJSON(ctx, "places", "/v2/places", params, &resp); err != nil {
		return nil, err
	}

	cost := g.costPerTraveler * budget.Amount(max(q.NumTravelers, 1))
	items := make([]contracts.ActivityItem, 0, len(resp.Features))
	for _, f := range resp.Features {
		p := f.Properties
		if p.Name == "" {
			continue
		}
		plat, plon := p.Lat, p.Lon
		category := ""
		if len(p.Categories) > 0 {
			category = p.Categories[0]
		}
		location := p.Formatted
		if location == "" {
			location = p.AddressOne
		}
		items = append(items, contracts.ActivityItem{
			Name:        p.Name,
			Description: fmt.Sprintf("Visit %s", p.Name),
			Category:    category,
			Cost:        cost,
			Location:    location,
			Latitude:    &plat,
			Longitude:   &plon,
		})
	}
	return items, nil
}
