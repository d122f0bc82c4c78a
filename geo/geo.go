package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ringsaturn/tzf"
	"github.com/sneezeparty/soupy/log"
)

const (
	nominatimUrl   = "https://nominatim.openstreetmap.org"
	userAgent      = "discord_bot_soupy"
	geocodeTimeout = 10 * time.Second
	timeFormat     = "03:04 PM on 2006-01-02"
)

// Place is a geocoded location.
type Place struct {
	Country   string
	AdminArea string
	Latitude  float64
	Longitude float64
}

// Service resolves place names to local times using the Nominatim
// geocoder and an offline timezone lookup.
type Service struct {
	httpClient *http.Client
	baseUrl    string
	finder     tzf.F
	log        log.Logger
}

func NewService(log log.Logger) (*Service, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize timezone finder: %s", err)
	}
	return &Service{
		httpClient: &http.Client{Timeout: geocodeTimeout},
		baseUrl:    nominatimUrl,
		finder:     finder,
		log:        log.WithPrefix("geo"),
	}, nil
}

// Geocode resolves a location query to coordinates and address details.
func (s *Service) Geocode(ctx context.Context, query string) (*Place, error) {
	reqUrl := s.baseUrl + "/search?" + url.Values{
		"q":               {query},
		"format":          {"json"},
		"addressdetails":  {"1"},
		"accept-language": {"en"},
		"limit":           {"1"},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Errorf("geocoding request failed: %s", err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned HTTP %d", resp.StatusCode)
	}
	var results []struct {
		Lat     string `json:"lat"`
		Lon     string `json:"lon"`
		Address struct {
			Country string `json:"country"`
			State   string `json:"state"`
			Region  string `json:"region"`
			County  string `json:"county"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("could not geocode the location: %s", query)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, err
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, err
	}
	adminArea := results[0].Address.State
	if adminArea == "" {
		adminArea = results[0].Address.Region
	}
	if adminArea == "" {
		adminArea = results[0].Address.County
	}
	country := results[0].Address.Country
	if country == "" {
		country = "Unknown country"
	}
	return &Place{
		Country:   country,
		AdminArea: adminArea,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// Timezone finds the IANA timezone name at the place's coordinates.
func (s *Service) Timezone(place *Place) (string, error) {
	name := s.finder.GetTimezoneName(place.Longitude, place.Latitude)
	if name == "" {
		return "", fmt.Errorf("could not find timezone for the location")
	}
	return name, nil
}

// LocalTime answers "what time is it in X" in one step.
func (s *Service) LocalTime(ctx context.Context, query string) (string, error) {
	place, err := s.Geocode(ctx, query)
	if err != nil {
		return "", err
	}
	timezone, err := s.Timezone(place)
	if err != nil {
		return "", fmt.Errorf("could not find timezone for the location: %s", query)
	}
	currentTime, err := FormatTimeIn(timezone, time.Now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("It is currently %s in %s.", currentTime, DescribeLocation(query, place)), nil
}

// DescribeLocation renders a "City, State, Country" style label.
// A query that names the country itself collapses to just the country.
func DescribeLocation(query string, place *Place) string {
	if strings.EqualFold(strings.TrimSpace(query), place.Country) {
		return place.Country
	}
	titled := titleCase(strings.TrimSpace(query))
	if place.AdminArea != "" {
		return fmt.Sprintf("%s, %s, %s", titled, place.AdminArea, place.Country)
	}
	return fmt.Sprintf("%s, %s", titled, place.Country)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// FormatTimeIn renders the wall clock of a timezone like
// "08:15 PM on 2026-08-31".
func FormatTimeIn(timezone string, at time.Time) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	return at.In(loc).Format(timeFormat), nil
}
