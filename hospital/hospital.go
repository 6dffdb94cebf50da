// Package hospital finds hospitals near the user's approximate location.
// Location comes from IP geolocation (ipapi.co) and hospitals from the
// OpenStreetMap Overpass API.
package hospital

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"carechat/config"
)

const (
	DefaultGeoURL      = "https://ipapi.co/json/"
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	// SearchRadius is the Overpass "around" radius in meters.
	SearchRadius = 30000

	earthRadiusKm = 6371.0

	noAddress = "Address not available"
)

// Location is an approximate position derived from the caller's IP address.
type Location struct {
	Latitude  float64
	Longitude float64
	City      string
	Region    string
}

// Hospital is a named hospital with its distance from the search origin.
type Hospital struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Distance  float64 // kilometers
	Address   string
}

// Groups buckets hospitals by distance: Nearby < 5 km, Medium 5 to 20 km,
// Far > 20 km.
type Groups struct {
	Nearby []Hospital
	Medium []Hospital
	Far    []Hospital
}

// Client talks to the geolocation and Overpass endpoints.
type Client struct {
	HTTPClient  *http.Client
	GeoURL      string
	OverpassURL string
}

// NewClient returns a Client using the public endpoints. A nil httpClient
// gets a 30 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		HTTPClient:  httpClient,
		GeoURL:      DefaultGeoURL,
		OverpassURL: DefaultOverpassURL,
	}
}

var defaultClient = NewClient(nil)

// GetUserLocation looks up the caller's location with the default client.
func GetUserLocation(ctx context.Context) (*Location, error) {
	return defaultClient.UserLocation(ctx)
}

// GetNearbyHospitals searches around lat/lon with the default client.
func GetNearbyHospitals(ctx context.Context, lat, lon float64) ([]Hospital, error) {
	return defaultClient.NearbyHospitals(ctx, lat, lon)
}

// UserLocation resolves the caller's approximate location. An error flag in
// the response body is reported as an error.
func (c *Client) UserLocation(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GeoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create location request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch location: %w", err)
	}

	result := gjson.ParseBytes(body)
	if result.Get("error").Bool() {
		reason := result.Get("reason").String()
		logf("[Hospital] Location lookup failed: %s", reason)
		if reason == "" {
			reason = "unknown reason"
		}
		return nil, fmt.Errorf("location lookup failed: %s", reason)
	}
	if !result.Get("latitude").Exists() || !result.Get("longitude").Exists() {
		return nil, fmt.Errorf("location lookup returned no coordinates")
	}

	return &Location{
		Latitude:  result.Get("latitude").Float(),
		Longitude: result.Get("longitude").Float(),
		City:      result.Get("city").String(),
		Region:    result.Get("region").String(),
	}, nil
}

// NearbyHospitals returns named hospitals within SearchRadius of lat/lon,
// nearest first.
func (c *Client) NearbyHospitals(ctx context.Context, lat, lon float64) ([]Hospital, error) {
	form := url.Values{"data": {overpassQuery(lat, lon)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.OverpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hospitals: %w", err)
	}

	elements := gjson.GetBytes(body, "elements")
	if !elements.IsArray() {
		return nil, fmt.Errorf("unexpected overpass response")
	}

	hospitals := parseElements(elements, lat, lon)
	logf("[Hospital] Found %d hospitals near %.4f,%.4f", len(hospitals), lat, lon)
	return hospitals, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// ipapi.co reports errors with a JSON body and a 4xx status
		if gjson.GetBytes(body, "error").Bool() {
			return body, nil
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func overpassQuery(lat, lon float64) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", SearchRadius,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
	return "[out:json];(" +
		`node["amenity"="hospital"]` + around + ";" +
		`way["amenity"="hospital"]` + around + ";" +
		`relation["amenity"="hospital"]` + around + ";" +
		");out center;"
}

func parseElements(elements gjson.Result, lat, lon float64) []Hospital {
	var hospitals []Hospital
	seen := make(map[string]bool)

	elements.ForEach(func(_, el gjson.Result) bool {
		name := el.Get("tags.name").String()
		id := el.Get("id").String()
		if name == "" || id == "" || seen[id] {
			return true
		}

		// Ways and relations carry their position in "center".
		pos := el
		if !el.Get("lat").Exists() {
			pos = el.Get("center")
		}
		if !pos.Get("lat").Exists() || !pos.Get("lon").Exists() {
			return true
		}
		seen[id] = true

		hLat, hLon := pos.Get("lat").Float(), pos.Get("lon").Float()
		hospitals = append(hospitals, Hospital{
			ID:        id,
			Name:      name,
			Latitude:  hLat,
			Longitude: hLon,
			Distance:  Distance(lat, lon, hLat, hLon),
			Address:   address(el.Get("tags")),
		})
		return true
	})

	sort.SliceStable(hospitals, func(i, j int) bool {
		return hospitals[i].Distance < hospitals[j].Distance
	})
	return hospitals
}

func address(tags gjson.Result) string {
	if full := strings.TrimSpace(tags.Get(`addr\:full`).String()); full != "" {
		return full
	}
	street := tags.Get(`addr\:street`).String()
	number := tags.Get(`addr\:housenumber`).String()
	if a := strings.TrimSpace(street + " " + number); a != "" {
		return a
	}
	return noAddress
}

// Distance returns the great-circle distance in kilometers (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// GroupByRange splits hospitals into distance bands, preserving order.
func GroupByRange(hospitals []Hospital) Groups {
	var g Groups
	for _, h := range hospitals {
		switch {
		case h.Distance < 5:
			g.Nearby = append(g.Nearby, h)
		case h.Distance <= 20:
			g.Medium = append(g.Medium, h)
		default:
			g.Far = append(g.Far, h)
		}
	}
	return g
}

// DirectionsURL returns a Google Maps driving directions link.
func DirectionsURL(origin Location, h Hospital) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s,%s&destination=%s,%s&travelmode=driving",
		coord(origin.Latitude), coord(origin.Longitude), coord(h.Latitude), coord(h.Longitude))
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func logf(format string, args ...any) {
	if config.DebugLog != nil {
		config.DebugLog.Printf(format, args...)
	}
}
