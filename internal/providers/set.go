package providers

// Keys holds the credentials for the live backends. A missing key leaves
// that domain on the static catalog.
type Keys struct {
	RapidAPI string
	Geoapify string
}

// NewSet picks a live backend for every domain whose key is present and
// the static catalog for the rest. The returned names are for startup logs.
func NewSet(keys Keys, cfg ClientConfig) (Set, []string, error) {
	static := NewStaticCatalog()
	set := Set{Flights: static, Hotels: static, Activities: static}
	names := []string{"static", "static", "static"}
	if keys.RapidAPI != "" {
		b, err := NewBooking(keys.RapidAPI, cfg)
		if err != nil {
			return Set{}, nil, err
		}
		set.Flights, set.Hotels = b, b
		names[0], names[1] = bookingName, bookingName
	}
	if keys.Geoapify != "" {
		g, err := NewGeoapify(keys.Geoapify, cfg)
		if err != nil {
			return Set{}, nil, err
		}
		set.Activities = g
		names[2] = geoapifyName
	}
	return set, names, nil
}
