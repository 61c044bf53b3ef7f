package providers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func testConfig(transport http.RoundTripper) providers.ClientConfig {
	return providers.ClientConfig{
		BaseURL:    "http://provider",
		Timeout:    time.Second,
		Retries:    2,
		HTTPClient: &http.Client{Transport: transport},
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return jsonResponse(http.StatusBadGateway, "upstream"), nil
		}
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})
	cfg := testConfig(transport)
	cfg.Name = "test"
	client, err := providers.NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), "ping", "/ping", nil, &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !out.OK || calls != 3 {
		t.Fatalf("expected success on third attempt, got ok=%v calls=%d", out.OK, calls)
	}
}

func TestClientGivesUpAsProviderError(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, "down"), nil
	})
	cfg := testConfig(transport)
	cfg.Name = "test"
	cfg.Retries = 1
	client, _ := providers.NewClient(cfg)
	err := client.GetJSON(context.Background(), "ping", "/ping", nil, &struct{}{})
	var perr *providers.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providers.IsFault(err) {
		t.Fatalf("retryable failure must not be a fault")
	}
}

func TestClientStopsBackoffOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return jsonResponse(http.StatusBadGateway, "upstream"), nil
	})
	cfg := testConfig(transport)
	cfg.Name = "test"
	cfg.Retries = 5
	client, _ := providers.NewClient(cfg)
	err := client.GetJSON(ctx, "ping", "/ping", nil, &struct{}{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retry after cancel, got %d calls", calls)
	}
}

func TestClientEscalatesRejectedCredentials(t *testing.T) {
	var calls int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusForbidden, "bad key"), nil
	})
	cfg := testConfig(transport)
	cfg.Name = "test"
	client, _ := providers.NewClient(cfg)
	err := client.GetJSON(context.Background(), "ping", "/ping", nil, &struct{}{})
	if !providers.IsFault(err) {
		t.Fatalf("expected fault, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("credential rejection must not be retried, got %d calls", calls)
	}
}

func TestBookingFlightsParsesOffers(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("X-RapidAPI-Key") != "key" {
			t.Fatalf("missing rapidapi key header")
		}
		switch r.URL.Path {
		case "/api/v1/flights/searchDestination":
			q := r.URL.Query().Get("query")
			id := map[string]string{"New Delhi": "DEL.AIRPORT", "Mumbai": "BOM.AIRPORT"}[q]
			return jsonResponse(http.StatusOK, `{"data":[{"id":"`+id+`"}]}`), nil
		case "/api/v1/flights/searchFlights":
			if r.URL.Query().Get("fromId") != "DEL.AIRPORT" || r.URL.Query().Get("toId") != "BOM.AIRPORT" {
				t.Fatalf("unexpected airports %s", r.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{"data":{"flightOffers":[
				{"segments":[{"departureTime":"2025-12-01T06:00:00","arrivalTime":"2025-12-01T08:10:00",
				  "legs":[{"flightInfo":{"flightNumber":512,"carrierInfo":{"marketingCarrier":"6E"}},"carriersData":[{"name":"IndiGo"}]}]}],
				 "priceBreakdown":{"total":{"currencyCode":"USD","units":182,"nanos":500000000}}},
				{"segments":[],"priceBreakdown":{"total":{"units":90}}}
			]}}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	})
	b, err := providers.NewBooking("key", testConfig(transport))
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	offers, err := b.SearchFlights(context.Background(), providers.FlightQuery{
		Source: "New Delhi", Destination: "Mumbai", StartDate: "2025-12-01", EndDate: "2025-12-04",
		NumTravelers: 2, Currency: "USD",
	})
	if err != nil {
		t.Fatalf("search flights: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("expected 1 usable offer, got %d", len(offers))
	}
	got := offers[0]
	if got.Airline != "IndiGo" || got.FlightNumber != "6E 512" {
		t.Fatalf("unexpected offer %+v", got)
	}
	if want, _ := budget.Parse("182.50"); got.Price != want {
		t.Fatalf("price: want %s got %s", want, got.Price)
	}
}

func TestBookingUsesIATACodesDirectly(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api/v1/flights/searchFlights" {
			t.Fatalf("expected no destination lookup, got %s", r.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"data":{"flightOffers":[]}}`), nil
	})
	b, _ := providers.NewBooking("key", testConfig(transport))
	offers, err := b.SearchFlights(context.Background(), providers.FlightQuery{Source: "del", Destination: "BOM", NumTravelers: 1})
	if err != nil {
		t.Fatalf("search flights: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestBookingHotelsConvertsScores(t *testing.T) {
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/api/v1/hotels/searchDestination":
			return jsonResponse(http.StatusOK, `{"data":[{"dest_id":"-2092174","search_type":"CITY"}]}`), nil
		case "/api/v1/hotels/searchHotels":
			if r.URL.Query().Get("sort") != "price_low_to_high" {
				t.Fatalf("expected price sort")
			}
			return jsonResponse(http.StatusOK, `{"data":{"hotels":[
				{"property":{"name":"Sea Breeze","reviewScore":8.4,"reviewCount":120,"latitude":18.9,"longitude":72.8,
				 "priceBreakdown":{"grossPrice":{"value":450}}}},
				{"property":{"name":"No Price"}}
			]}}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	})
	b, _ := providers.NewBooking("key", testConfig(transport))
	offers, err := b.SearchHotels(context.Background(), providers.HotelQuery{
		Destination: "Mumbai", StartDate: "2025-12-01", EndDate: "2025-12-04", NumTravelers: 2, Currency: "USD",
	})
	if err != nil {
		t.Fatalf("search hotels: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(offers))
	}
	h := offers[0]
	if h.TotalCost != budget.Units(450) || h.NightlyRate != budget.Units(150) {
		t.Fatalf("unexpected prices total=%s nightly=%s", h.TotalCost, h.NightlyRate)
	}
	if h.Rating == nil || *h.Rating != 4.2 {
		t.Fatalf("expected rating 4.2, got %v", h.Rating)
	}
}

func TestBookingRequiresKey(t *testing.T) {
	if _, err := providers.NewBooking("", providers.ClientConfig{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestGeoapifyGeocodesAnchorWithoutCoordinates(t *testing.T) {
	var geocoded bool
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/v1/geocode/search":
			geocoded = true
			return jsonResponse(http.StatusOK, `{"features":[{"properties":{"lat":18.92,"lon":72.83}}]}`), nil
		case "/v2/places":
			filter := r.URL.Query().Get("filter")
			if !strings.HasPrefix(filter, "circle:72.83") || !strings.HasSuffix(filter, ",5000") {
				t.Fatalf("unexpected filter %q", filter)
			}
			if cats := r.URL.Query().Get("categories"); cats != "catering.restaurant,tourism.sights.fort" {
				t.Fatalf("unexpected categories %q", cats)
			}
			return jsonResponse(http.StatusOK, `{"features":[
				{"properties":{"name":"Gateway of India","formatted":"Apollo Bandar, Mumbai","categories":["tourism.sights"],"lat":18.92,"lon":72.83}},
				{"properties":{"formatted":"unnamed"}}
			]}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	})
	g, err := providers.NewGeoapify("geo", testConfig(transport))
	if err != nil {
		t.Fatalf("new geoapify: %v", err)
	}
	items, err := g.SearchActivities(context.Background(), providers.ActivityQuery{
		Destination:  "Mumbai",
		Interests:    []string{"food", "forts"},
		NumTravelers: 2,
		Anchor:       contracts.HotelAnchor{Name: "Mumbai", Address: "Mumbai"},
	})
	if err != nil {
		t.Fatalf("search activities: %v", err)
	}
	if !geocoded {
		t.Fatalf("expected anchor to be geocoded")
	}
	if len(items) != 1 || items[0].Name != "Gateway of India" {
		t.Fatalf("unexpected items %+v", items)
	}
	if items[0].Cost != budget.Units(60) {
		t.Fatalf("expected per-traveler cost 60, got %s", items[0].Cost)
	}
}

func TestStaticCatalogScalesWithTrip(t *testing.T) {
	c := providers.NewStaticCatalog()
	ctx := context.Background()
	flights, err := c.SearchFlights(ctx, providers.FlightQuery{Source: "New Delhi", Destination: "Mumbai", StartDate: "2025-12-01", EndDate: "2025-12-04", NumTravelers: 2})
	if err != nil {
		t.Fatalf("flights: %v", err)
	}
	if flights[0].Price != budget.Units(190) {
		t.Fatalf("expected 190 for two travelers, got %s", flights[0].Price)
	}
	hotels, err := c.SearchHotels(ctx, providers.HotelQuery{Destination: "Mumbai", StartDate: "2025-12-01", EndDate: "2025-12-04", NumTravelers: 2})
	if err != nil {
		t.Fatalf("hotels: %v", err)
	}
	if hotels[2].TotalCost != budget.Units(570) {
		t.Fatalf("expected three nights at 190, got %s", hotels[2].TotalCost)
	}
	acts, err := c.SearchActivities(ctx, providers.ActivityQuery{Destination: "Mumbai", Interests: []string{"food"}, NumTravelers: 2})
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(acts) != 2 || acts[0].Cost != budget.Units(60) {
		t.Fatalf("unexpected activities %+v", acts)
	}
}

func TestNewSetFallsBackToStatic(t *testing.T) {
	set, names, err := providers.NewSet(providers.Keys{Geoapify: "geo-key"}, providers.ClientConfig{Timeout: time.Second})
	if err != nil {
		t.Fatalf("new set: %v", err)
	}
	if _, ok := set.Flights.(*providers.StaticCatalog); !ok {
		t.Fatalf("flights backend = %T, want static catalog", set.Flights)
	}
	if _, ok := set.Activities.(*providers.Geoapify); !ok {
		t.Fatalf("activities backend = %T, want geoapify", set.Activities)
	}
	if names[0] != "static" || names[2] == "static" {
		t.Fatalf("unexpected backend names %v", names)
	}
	if err := set.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
