package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleResult struct {
	Geometry struct {
		Location *googleLatLng `json:"location"`
		Viewport *struct {
			Northeast *googleLatLng `json:"northeast"`
			Southwest *googleLatLng `json:"southwest"`
		} `json:"viewport"`
	} `json:"geometry"`
	FormattedAddress  string `json:"formatted_address"`
	AddressComponents []struct {
		LongName string   `json:"long_name"`
		Types    []string `json:"types"`
	} `json:"address_components"`
}

// Geocode implements Client.
func (g *geocoder) Geocode(ctx context.Context, address string) *Result {
	res := &Result{Address: address}

	start := g.now()
	body, err := g.fetch(ctx, address)
	res.Elapsed = g.now().Sub(start)

	if err != nil {
		res.Err = err
		res.Kind = KindTransport
		if _, ok := err.(*HTTPStatusError); ok {
			res.Kind = KindHTTP
		}
		zap.L().Warn("geocode: request failed",
			zap.String("kind", res.Kind.String()),
			zap.Bool("transient", IsTransient(err)),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(err),
		)
		return res
	}

	res.Body = string(body)
	g.parse(res, body)

	zap.L().Debug("geocode: lookup",
		zap.Int("address_len", len(address)),
		zap.String("status", res.Status),
		zap.String("kind", res.Kind.String()),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

// fetch issues the GET and returns the body of a 2xx response.
func (g *geocoder) fetch(ctx context.Context, address string) ([]byte, error) {
	params := url.Values{
		"key":     {g.apiKey},
		"address": {address},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, g.transportError(err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, g.transportError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, g.transportError(err)
	}
	return body, nil
}

func (g *geocoder) transportError(err error) *TransportError {
	return &TransportError{Err: err, Text: redact(err.Error(), g.apiKey)}
}

// parse decodes body into res. Only the first result is used.
func (g *geocoder) parse(res *Result, body []byte) {
	var resp googleGeocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		res.Kind = KindParse
		res.Err = &ParseError{Reason: err.Error()}
		return
	}
	if resp.Status == "" {
		res.Kind = KindParse
		res.Err = &ParseError{Reason: "missing status"}
		return
	}

	res.Status = resp.Status
	if resp.Status != StatusOK {
		res.Kind = KindProvider
		return
	}

	// An OK envelope without a located result is handled as no match.
	if len(resp.Results) == 0 || resp.Results[0].Geometry.Location == nil {
		res.Kind = KindProvider
		res.Status = StatusZeroResults
		return
	}

	res.Kind = KindOK
	res.Match = g.match(&resp.Results[0])
}

func (g *geocoder) match(r *googleResult) *Match {
	loc := r.Geometry.Location
	m := &Match{
		Location:         geom.NewPointFlat(geom.XY, []float64{loc.Lng, loc.Lat}),
		FormattedAddress: r.FormattedAddress,
		Components:       make(map[string]string),
	}

	if vp := r.Geometry.Viewport; vp != nil && vp.Northeast != nil && vp.Southwest != nil {
		m.Viewport = newViewport(vp.Northeast.Lat, vp.Northeast.Lng, vp.Southwest.Lat, vp.Southwest.Lng)
		m.Area = EstimateBoundsArea(m.Viewport, g.unit)
	}

	for _, c := range r.AddressComponents {
		if len(c.Types) == 0 {
			continue
		}
		if typ := c.Types[0]; IsComponent(typ) {
			m.Components[typ] = c.LongName
		}
	}
	return m
}
