package config

import (
	"net/http"

	"go.ngs.io/gridprofiles/internal/adapter/gridindex"
	"go.ngs.io/gridprofiles/internal/adapter/hsds"
	"go.ngs.io/gridprofiles/internal/adapter/noaa"
	"go.ngs.io/gridprofiles/internal/usecase"
)

// WindFetcherFactory builds RAP-130 clients against the configured roots.
func (c *Config) WindFetcherFactory() usecase.WindFetcherFactory {
	return func(box noaa.BoundingBox) (usecase.WindFetcher, error) {
		client, err := noaa.NewRAPClient(box,
			noaa.WithBaseURL(c.NOAABaseURL),
			noaa.WithFallbackURL(c.NOAAFallbackURL),
			noaa.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// WindOptions returns the wind pipeline settings.
func (c *Config) WindOptions() usecase.WindOptions {
	return usecase.WindOptions{
		BoxMargin:     c.BoxMarginDeg,
		ProgressEvery: c.ProgressEvery,
		Metric:        gridindex.Angular,
	}
}

// SolarOptions returns the solar pipeline settings.
func (c *Config) SolarOptions() usecase.SolarOptions {
	return usecase.SolarOptions{ProgressEvery: c.ProgressEvery}
}

// IrradianceSource returns the WIND Toolkit reader. It fails with
// hsds.ErrNoAPIKey when NREL_API_KEY is unset.
func (c *Config) IrradianceSource() (*hsds.WTK, error) {
	client, err := hsds.NewClient(c.HSDSEndpoint, c.HSDSDomain, c.NRELAPIKey,
		hsds.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}))
	if err != nil {
		return nil, err
	}
	return hsds.NewWTK(client, hsds.DefaultMargin), nil
}
