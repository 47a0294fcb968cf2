// Package noaa retrieves hourly RAP-130 wind snapshots from NOAA's THREDDS
// NetCDF Subset Service.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"go.ngs.io/gridprofiles/internal/domain"
)

const (
	// DefaultBaseURL serves recent RAP-130 analyses.
	DefaultBaseURL = "https://www.ncdc.noaa.gov/thredds/ncss/model-rap130/"
	// DefaultFallbackURL serves older archived analyses.
	DefaultFallbackURL = "https://www.ncdc.noaa.gov/thredds/ncss/model-rap130-old/"

	// VarU is the eastward wind component variable.
	VarU = "u-component_of_wind_height_above_ground"
	// VarV is the northward wind component variable.
	VarV = "v-component_of_wind_height_above_ground"
)

var (
	// ErrBoxMissing is returned when no bounding box is given.
	ErrBoxMissing = errors.New("bounding box is required")
	// ErrBoxKeys is returned when the box does not carry exactly north, south, east and west.
	ErrBoxKeys = errors.New("bounding box keys must be exactly: north, south, east, west")
)

var boxKeys = []string{"east", "north", "south", "west"}

// BoundingBox is a geographic query area keyed by north, south, east and west.
type BoundingBox map[string]float64

// ValidateBox checks the box before any request is made.
func ValidateBox(box BoundingBox) error {
	if box == nil {
		return ErrBoxMissing
	}
	if len(box) != len(boxKeys) {
		return fmt.Errorf("%w: got %v", ErrBoxKeys, sortedKeys(box))
	}
	for _, k := range boxKeys {
		v, ok := box[k]
		if !ok {
			return fmt.Errorf("%w: got %v", ErrBoxKeys, sortedKeys(box))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrBoxKeys, k)
		}
	}
	if box["north"] < box["south"] {
		return fmt.Errorf("%w: north (%.4f) is below south (%.4f)", ErrBoxKeys, box["north"], box["south"])
	}
	return nil
}

// BoxAround returns the extent of the plants padded by margin degrees.
func BoxAround(plants []domain.Plant, margin float64) (BoundingBox, error) {
	if len(plants) == 0 {
		return nil, fmt.Errorf("%w: no plants to bound", ErrBoxMissing)
	}
	north, south := math.Inf(-1), math.Inf(1)
	east, west := math.Inf(-1), math.Inf(1)
	for _, p := range plants {
		north = math.Max(north, p.Lat)
		south = math.Min(south, p.Lat)
		east = math.Max(east, p.Lon)
		west = math.Min(west, p.Lon)
	}
	return BoundingBox{
		"north": north + margin,
		"south": south - margin,
		"east":  east + margin,
		"west":  west - margin,
	}, nil
}

func sortedKeys(box BoundingBox) []string {
	keys := make([]string, 0, len(box))
	for k := range box {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Slot is one hourly retrieval attempt.
type Slot struct {
	Time time.Time
	Path string // Path below the service root, e.g. 201601/20160101/rap_130_20160101_0000_000.grb2.
}

// SlotPath returns the NCSS path of the analysis valid at t.
func SlotPath(t time.Time) string {
	t = t.UTC()
	day := t.Format("20060102")
	return fmt.Sprintf("%s/%s/rap_130_%s_%02d00_000.grb2", day[:6], day, day, t.Hour())
}

// TileError reports an hour for which no snapshot could be retrieved.
type TileError struct {
	URL    string
	Status int
	Cause  error
}

func (e *TileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tile unavailable (status %d) at %s: %v", e.Status, e.URL, e.Cause)
	}
	return fmt.Sprintf("tile unavailable (status %d) at %s", e.Status, e.URL)
}

// Unwrap lets errors.Is match domain.ErrTileUnavailable and the decode cause.
func (e *TileError) Unwrap() []error {
	if e.Cause != nil {
		return []error{domain.ErrTileUnavailable, e.Cause}
	}
	return []error{domain.ErrTileUnavailable}
}

// RAPClient downloads RAP-130 wind snapshots for a fixed bounding box.
type RAPClient struct {
	baseURL     string
	fallbackURL string
	httpClient  *http.Client
	params      url.Values
	heightIndex int
}

// Option configures a RAPClient.
type Option func(*RAPClient)

// WithBaseURL overrides the primary service root.
func WithBaseURL(u string) Option {
	return func(c *RAPClient) { c.baseURL = u }
}

// WithFallbackURL overrides the archive service root.
func WithFallbackURL(u string) Option {
	return func(c *RAPClient) { c.fallbackURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RAPClient) { c.httpClient = hc }
}

// WithHeightIndex selects the level read from 4-D wind variables.
func WithHeightIndex(i int) Option {
	return func(c *RAPClient) { c.heightIndex = i }
}

// NewRAPClient validates the box and creates a client.
func NewRAPClient(box BoundingBox, opts ...Option) (*RAPClient, error) {
	if err := ValidateBox(box); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("var", VarU)
	params.Add("var", VarV)
	params.Set("disableProjSubset", "on")
	params.Set("horizStride", "1")
	params.Set("addLatLon", "true")
	params.Set("accept", "netCDF")
	for _, k := range boxKeys {
		params.Set(k, fmt.Sprintf("%g", box[k]))
	}

	c := &RAPClient{
		baseURL:     DefaultBaseURL,
		fallbackURL: DefaultFallbackURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		params:      params,
		heightIndex: DefaultHeightIndex,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Hours returns one slot per hour from start 00:00 through end 23:00.
func (c *RAPClient) Hours(start, end time.Time) []Slot {
	hours := domain.Hours(start, end)
	slots := make([]Slot, len(hours))
	for i, t := range hours {
		slots[i] = Slot{Time: t, Path: SlotPath(t)}
	}
	return slots
}

// URL returns the full request URL of a slot.
func (c *RAPClient) URL(slot Slot, fallback bool) string {
	root := c.baseURL
	if fallback {
		root = c.fallbackURL
	}
	return root + slot.Path + "?" + c.params.Encode()
}

// Fetch retrieves one hourly snapshot. A 404 from the primary root is retried
// once against the archive root. Tile errors wrap domain.ErrTileUnavailable;
// transport errors are returned unwrapped from that sentinel.
func (c *RAPClient) Fetch(ctx context.Context, slot Slot) (*domain.WindSnapshot, error) {
	target := c.URL(slot, false)
	resp, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		log.Printf("Got 404 response, trying fallback url. Original=%s", target)
		target = c.URL(slot, true)
		resp, err = c.get(ctx, target)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			log.Printf("Content not found for %s - it may be available via tape archive", slot.Path)
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &TileError{URL: target, Status: resp.StatusCode}
	}

	field, err := c.decode(resp.Body)
	if err != nil {
		return nil, &TileError{URL: target, Status: resp.StatusCode, Cause: err}
	}

	return &domain.WindSnapshot{
		Time: slot.Time,
		Grid: field.Grid,
		U:    field.U,
		V:    field.V,
	}, nil
}

func (c *RAPClient) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	return resp, nil
}

// decode spools the payload to a temporary file, since NetCDF is opened by path.
func (c *RAPClient) decode(body io.Reader) (*Field, error) {
	tmp, err := os.CreateTemp("", "rap130-*.nc")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write payload: %w", err)
	}

	return DecodeRAP(tmp.Name(), c.heightIndex)
}
