package places

// Wire types for the Google Places API (legacy JSON surface).
// Only the fields the scan pipeline consumes are mapped.

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Geometry struct {
	Location LatLng `json:"location"`
}

type PlacePhoto struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// PlaceResult is one entry of a nearby search response.
type PlaceResult struct {
	PlaceID          string       `json:"place_id"`
	Name             string       `json:"name"`
	Vicinity         string       `json:"vicinity"`
	Geometry         Geometry     `json:"geometry"`
	Types            []string     `json:"types"`
	Rating           float64      `json:"rating"`
	UserRatingsTotal int          `json:"user_ratings_total"`
	PriceLevel       *int         `json:"price_level"`
	BusinessStatus   string       `json:"business_status"`
	Photos           []PlacePhoto `json:"photos"`
}

type nearbySearchResponse struct {
	Results       []PlaceResult `json:"results"`
	Status        string        `json:"status"`
	NextPageToken string        `json:"next_page_token"`
	ErrorMessage  string        `json:"error_message"`
}

type OpeningPeriodPoint struct {
	Day  int    `json:"day"`  // 0 = Sunday
	Time string `json:"time"` // "HHMM"
}

type OpeningPeriod struct {
	Open  OpeningPeriodPoint  `json:"open"`
	Close *OpeningPeriodPoint `json:"close"`
}

type OpeningHours struct {
	Periods []OpeningPeriod `json:"periods"`
}

type EditorialSummary struct {
	Overview string `json:"overview"`
}

// PlaceDetails is the place details response payload.
type PlaceDetails struct {
	PlaceID              string            `json:"place_id"`
	Name                 string            `json:"name"`
	FormattedAddress     string            `json:"formatted_address"`
	FormattedPhoneNumber string            `json:"formatted_phone_number"`
	Website              string            `json:"website"`
	Geometry             Geometry          `json:"geometry"`
	Types                []string          `json:"types"`
	Rating               float64           `json:"rating"`
	UserRatingsTotal     int               `json:"user_ratings_total"`
	PriceLevel           *int              `json:"price_level"`
	BusinessStatus       string            `json:"business_status"`
	Photos               []PlacePhoto      `json:"photos"`
	OpeningHours         *OpeningHours     `json:"opening_hours"`
	EditorialSummary     *EditorialSummary `json:"editorial_summary"`
}

type placeDetailsResponse struct {
	Result       *PlaceDetails `json:"result"`
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
}
