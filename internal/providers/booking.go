package providers

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

const (
	BookingHost    = "booking-com15.p.rapidapi.com"
	bookingBaseURL = "https://" + BookingHost
	bookingName    = "booking"
	maxHotelOffers = 10
)

var iataCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Booking searches flights and hotels through the Booking.com RapidAPI.
type Booking struct {
	client *Client
}

// NewBooking builds the backend. cfg.BaseURL defaults to the RapidAPI host and
// the RapidAPI headers are added from apiKey.
func NewBooking(apiKey string, cfg ClientConfig) (*Booking, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("booking: RAPIDAPI_KEY required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = bookingBaseURL
	}
	cfg.Name = bookingName
	headers := map[string]string{
		"X-RapidAPI-Key":  apiKey,
		"X-RapidAPI-Host": BookingHost,
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	cfg.Headers = headers
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Booking{client: client}, nil
}

type bookingPrice struct {
	CurrencyCode string `json:"currencyCode"`
	Units        int64  `json:"units"`
	Nanos        int64  `json:"nanos"`
}

func (p bookingPrice) amount() budget.Amount {
	return budget.Units(p.Units) + budget.Minor(p.Nanos/10_000_000)
}

type bookingFlightResponse struct {
	Data struct {
		FlightOffers []struct {
			Segments []struct {
				DepartureTime string `json:"departureTime"`
				ArrivalTime   string `json:"arrivalTime"`
				Legs          []struct {
					FlightInfo struct {
						FlightNumber int `json:"flightNumber"`
						CarrierInfo  struct {
							MarketingCarrier string `json:"marketingCarrier"`
						} `json:"carrierInfo"`
					} `json:"flightInfo"`
					CarriersData []struct {
						Name string `json:"name"`
					} `json:"carriersData"`
				} `json:"legs"`
			} `json:"segments"`
			PriceBreakdown struct {
				Total bookingPrice `json:"total"`
			} `json:"priceBreakdown"`
		} `json:"flightOffers"`
	} `json:"data"`
}

type bookingDestinationResponse struct {
	Data []struct {
		ID         string `json:"id"`
		DestID     string `json:"dest_id"`
		SearchType string `json:"search_type"`
	} `json:"data"`
}

func (b *Booking) airportID(ctx context.Context, place string) (string, error) {
	place = strings.TrimSpace(place)
	if iataCode.MatchString(place) {
		return strings.ToUpper(place) + ".AIRPORT", nil
	}
	var resp bookingDestinationResponse
	if err := b.client.GetJSON(ctx, "flight destination", "/api/v1/flights/searchDestination", url.Values{"query": {place}}, &resp); err != nil {
		return "", err
	}
	for _, d := range resp.Data {
		if d.ID != "" {
			return d.ID, nil
		}
	}
	return "", &ProviderError{Provider: bookingName, Op: "flight destination", Err: fmt.Errorf("%q: %w", place, ErrNoResults)}
}

func (b *Booking) SearchFlights(ctx context.Context, q FlightQuery) ([]contracts.FlightOffer, error) {
	fromID, err := b.airportID(ctx, q.Source)
	if err != nil {
		return nil, err
	}
	toID, err := b.airportID(ctx, q.Destination)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"fromId":        {fromID},
		"toId":          {toID},
		"departDate":    {q.StartDate},
		"returnDate":    {q.EndDate},
		"adults":        {strconv.Itoa(max(q.NumTravelers, 1))},
		"currency_code": {q.Currency},
		"sort":          {"CHEAPEST"},
	}
	var resp bookingFlightResponse
	if err := b.client.GetJSON(ctx, "search flights", "/api/v1/flights/searchFlights", params, &resp); err != nil {
		return nil, err
	}
	var offers []contracts.FlightOffer
	for _, fo := range resp.Data.FlightOffers {
		if len(fo.Segments) == 0 || len(fo.Segments[0].Legs) == 0 {
			continue
		}
		out := fo.Segments[0]
		leg := out.Legs[0]
		offer := contracts.FlightOffer{
			FlightNumber:  fmt.Sprintf("%s %d", leg.FlightInfo.CarrierInfo.MarketingCarrier, leg.FlightInfo.FlightNumber),
			DepartureTime: out.DepartureTime,
			ArrivalTime:   out.ArrivalTime,
			Stops:         len(out.Legs) - 1,
			Price:         fo.PriceBreakdown.Total.amount(),
		}
		if len(leg.CarriersData) > 0 {
			offer.Airline = leg.CarriersData[0].Name
		}
		if offer.Airline == "" {
			offer.Airline = leg.FlightInfo.CarrierInfo.MarketingCarrier
		}
		if len(fo.Segments) > 1 {
			offer.ReturnDepartureTime = fo.Segments[1].DepartureTime
			offer.ReturnArrivalTime = fo.Segments[1].ArrivalTime
		}
		if offer.Price <= 0 || offer.Airline == "" {
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

type bookingHotelResponse struct {
	Data struct {
		Hotels []struct {
			Property struct {
				Name           string   `json:"name"`
				WishlistName   string   `json:"wishlistName"`
				ReviewScore    float64  `json:"reviewScore"`
				ReviewCount    int      `json:"reviewCount"`
				Latitude       *float64 `json:"latitude"`
				Longitude      *float64 `json:"longitude"`
				CheckinDate    string   `json:"checkinDate"`
				CheckoutDate   string   `json:"checkoutDate"`
				PriceBreakdown struct {
					GrossPrice struct {
						Value float64 `json:"value"`
					} `json:"grossPrice"`
				} `json:"priceBreakdown"`
			} `json:"property"`
		} `json:"hotels"`
	} `json:"data"`
}

func (b *Booking) SearchHotels(ctx context.Context, q HotelQuery) ([]contracts.HotelOffer, error) {
	var dest bookingDestinationResponse
	if err := b.client.GetJSON(ctx, "hotel destination", "/api/v1/hotels/searchDestination", url.Values{"query": {q.Destination}}, &dest); err != nil {
		return nil, err
	}
	if len(dest.Data) == 0 || dest.Data[0].DestID == "" {
		return nil, &ProviderError{Provider: bookingName, Op: "hotel destination", Err: fmt.Errorf("%q: %w", q.Destination, ErrNoResults)}
	}
	searchType := dest.Data[0].SearchType
	if searchType == "" {
		searchType = "CITY"
	}
	params := url.Values{
		"dest_id":        {dest.Data[0].DestID},
		"search_type":    {searchType},
		"arrival_date":   {q.StartDate},
		"departure_date": {q.EndDate},
		"adults":         {strconv.Itoa(max(q.NumTravelers, 1))},
		"currency_code":  {q.Currency},
		"sort":           {"price_low_to_high"},
	}
	var resp bookingHotelResponse
	if err := b.client.GetJSON(ctx, "search hotels", "/api/v1/hotels/searchHotels", params, &resp); err != nil {
		return nil, err
	}
	nights := stayNights(q.StartDate, q.EndDate)
	var offers []contracts.HotelOffer
	for _, h := range resp.Data.Hotels {
		p := h.Property
		if p.Name == "" || p.PriceBreakdown.GrossPrice.Value <= 0 {
			continue
		}
		total, err := budget.FromFloat(p.PriceBreakdown.GrossPrice.Value)
		if err != nil {
			continue
		}
		// Booking scores out of 10.
		rating := p.ReviewScore / 2
		reviews := p.ReviewCount
		address := p.WishlistName
		if address == "" {
			address = q.Destination
		}
		offers = append(offers, contracts.HotelOffer{
			Name:         p.Name,
			Address:      address,
			CheckIn:      firstNonEmpty(p.CheckinDate, q.StartDate),
			CheckOut:     firstNonEmpty(p.CheckoutDate, q.EndDate),
			NightlyRate:  total / budget.Amount(nights),
			TotalCost:    total,
			Rating:       &rating,
			ReviewsCount: &reviews,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
		})
		if len(offers) >= maxHotelOffers {
			break
		}
	}
	return offers, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
