package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geocoding-cli/internal/config"
	"github.com/sells-group/geocoding-cli/internal/credential"
	"github.com/sells-group/geocoding-cli/internal/enrich"
	"github.com/sells-group/geocoding-cli/internal/record"
	"github.com/sells-group/geocoding-cli/pkg/geocode"
)

// runStream pipes r through e into w. Records that were emitted before a
// read error are still flushed.
func runStream(ctx context.Context, e *enrich.Enricher, r record.Reader, w record.Writer) (*enrich.Stats, error) {
	if mf, ok := r.(record.MultiFielder); ok {
		if md, ok := w.(record.MultiDeclarer); ok {
			md.DeclareMulti(e.MultiColumns(mf.MultiFields())...)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recs, errc := record.Stream(ctx, r)
	stats, err := e.Run(ctx, recs, w.Write)
	if err != nil {
		return stats, err
	}

	readErr := <-errc
	if err := w.Flush(); err != nil {
		return stats, eris.Wrap(err, "flush output")
	}
	if readErr != nil {
		return stats, eris.Wrap(readErr, "read input")
	}
	return stats, nil
}

// newGeocodeClient builds the provider client from config.
func newGeocodeClient(gc config.GeocodeConfig, apiKey, unit string) (geocode.Client, error) {
	u, err := geocode.ParseUnit(unit)
	if err != nil {
		return nil, err
	}
	return geocode.NewClient(
		geocode.WithAPIKey(apiKey),
		geocode.WithBaseURL(gc.BaseURL),
		geocode.WithTimeout(time.Duration(gc.TimeoutSecs)*time.Second),
		geocode.WithUnit(u),
	), nil
}

// resolveAPIKey returns key when set, otherwise the password stored for the
// configured realm.
func resolveAPIKey(ctx context.Context, key string, cc config.CredentialConfig) (string, error) {
	if key != "" {
		return key, nil
	}

	store, err := credential.Open(ctx, cc.Driver, cc.DatabaseURL)
	if err != nil {
		return "", eris.Wrap(err, "open credential store")
	}
	defer store.Close() //nolint:errcheck

	c, err := store.Get(ctx, cc.Realm)
	if errors.Is(err, credential.ErrNotFound) {
		return "", eris.Errorf("no API key: pass --api-key, set GEOCODING_GEOCODE_API_KEY, or run 'geocoding creds set --realm %s'", cc.Realm)
	}
	if err != nil {
		return "", err
	}
	return c.Password, nil
}

// inferFormat picks a record format from the file extension, falling back to
// fallback for stdin/stdout and unknown extensions.
func inferFormat(path, fallback string) (record.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return record.FormatCSV, nil
	case ".jsonl", ".ndjson":
		return record.FormatJSONL, nil
	case ".xlsx":
		return record.FormatXLSX, nil
	}
	return record.ParseFormat(fallback)
}
