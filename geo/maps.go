package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const mapsBaseURL = "https://maps.googleapis.com/maps/api"

// Client wraps the Google Maps collaborators used to obtain an address photo:
// geocoding, Street View imagery and Places photos as fallback.
type Client struct {
	APIKey     string
	HTTPClient *http.Client
	BaseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    mapsBaseURL,
	}
}

// Location is a geocoded address.
type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
	PlaceID          string  `json:"place_id"`
}

// Geocode resolves a formatted address into coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (Location, error) {
	if c.APIKey == "" {
		return Location{}, fmt.Errorf("GOOGLE_MAPS_API_KEY not configured")
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.APIKey)

	var data struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			PlaceID          string `json:"place_id"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/geocode/json", q, &data); err != nil {
		return Location{}, err
	}

	if data.Status != "OK" || len(data.Results) == 0 {
		return Location{}, fmt.Errorf("geocoding failed: %s", data.Status)
	}

	r := data.Results[0]
	return Location{
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
	}, nil
}

// StreetViewImage fetches a street-level photo for the coordinates. Returns
// an error when no imagery exists for the location.
func (c *Client) StreetViewImage(ctx context.Context, lat, lng float64) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY not configured")
	}

	q := url.Values{}
	q.Set("size", "1280x720")
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("fov", "90")
	q.Set("key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/streetview?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("street view request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "image") {
		return nil, fmt.Errorf("no street view imagery (status %d)", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PlacePhoto fetches the first Places photo for a place, used when Street
// View has no coverage.
func (c *Client) PlacePhoto(ctx context.Context, placeID string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY not configured")
	}
	if placeID == "" {
		return nil, fmt.Errorf("no place id")
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "photos")
	q.Set("key", c.APIKey)

	var details struct {
		Status string `json:"status"`
		Result struct {
			Photos []struct {
				PhotoReference string `json:"photo_reference"`
			} `json:"photos"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, "/place/details/json", q, &details); err != nil {
		return nil, err
	}
	if details.Status != "OK" || len(details.Result.Photos) == 0 {
		return nil, fmt.Errorf("no place photos for %s", placeID)
	}

	pq := url.Values{}
	pq.Set("photoreference", details.Result.Photos[0].PhotoReference)
	pq.Set("maxwidth", "800")
	pq.Set("key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/place/photo?"+pq.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place photo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("place photo error (status %d)", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// AddressImage runs the acquisition chain: geocode, Street View, then the
// first Places photo. Best-effort; any usable image wins.
func (c *Client) AddressImage(ctx context.Context, address string) (Location, []byte, error) {
	loc, err := c.Geocode(ctx, address)
	if err != nil {
		return Location{}, nil, err
	}

	img, err := c.StreetViewImage(ctx, loc.Lat, loc.Lng)
	if err == nil && len(img) > 0 {
		return loc, img, nil
	}
	log.Printf("[geo] street view unavailable for %q, trying place photo: %v", address, err)

	img, err = c.PlacePhoto(ctx, loc.PlaceID)
	return loc, img, err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("maps request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maps error (status %d)", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
