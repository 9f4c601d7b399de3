package mix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Dataset file names inside the data directory.
const (
	GeoFileName      = "geo_all_channels.csv"
	NationalFileName = "national_all_channels.csv"
)

// Sentinel errors for dataset access.
var (
	ErrGeoNotFound     = errors.New("mix: geo not found")
	ErrChannelNotFound = errors.New("mix: unknown channel")
	ErrNoData          = errors.New("mix: no data available")
)

// Dataset is the immutable, loaded view of the marketing-mix CSVs.
type Dataset struct {
	geos     map[string][]GeoSample
	geoOrder []string
	national []NationalSample
	totals   map[string]ChannelTotals
	summary  Summary
}

// Load reads both dataset files from dir and precomputes aggregates.
func Load(dir string) (*Dataset, error) {
	ds := &Dataset{geos: make(map[string][]GeoSample)}

	if err := ds.loadGeo(filepath.Join(dir, GeoFileName)); err != nil {
		return nil, err
	}
	if err := ds.loadNational(filepath.Join(dir, NationalFileName)); err != nil {
		return nil, err
	}
	if len(ds.national) == 0 {
		return nil, fmt.Errorf("%w: national file has no rows", ErrNoData)
	}

	ds.summary = computeSummary(ds.national)
	ds.totals = computeChannelTotals(ds.national, ds.summary)
	ds.summary.Insights = buildInsights(ds.totals, ds.summary)

	return ds, nil
}

// Geos returns per-geo coverage metadata, sorted by geo ID.
func (d *Dataset) Geos() []GeoMeta {
	metas := make([]GeoMeta, 0, len(d.geoOrder))
	for _, geo := range d.geoOrder {
		records := d.geos[geo]
		if len(records) == 0 {
			continue
		}
		metas = append(metas, GeoMeta{
			Geo:        geo,
			Start:      records[0].Time,
			End:        records[len(records)-1].Time,
			SampleSize: len(records),
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Geo < metas[j].Geo })
	return metas
}

// GeoSeries returns the geo's records filtered by date range and channel
// set. Returned samples are copies.
func (d *Dataset) GeoSeries(geo string, start, end *time.Time, channels []string) ([]GeoSample, error) {
	series, ok := d.geos[geo]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGeoNotFound, geo)
	}

	filter, err := channelFilter(channels)
	if err != nil {
		return nil, err
	}

	out := make([]GeoSample, 0, len(series))
	for _, rec := range series {
		if start != nil && rec.Time.Before(*start) {
			continue
		}
		if end != nil && rec.Time.After(*end) {
			continue
		}
		out = append(out, GeoSample{
			Geo:                  rec.Geo,
			Time:                 rec.Time,
			Conversions:          clonePtr(rec.Conversions),
			RevenuePerConversion: clonePtr(rec.RevenuePerConversion),
			CompetitorSales:      clonePtr(rec.CompetitorSales),
			SentimentScore:       clonePtr(rec.SentimentScore),
			Promo:                clonePtr(rec.Promo),
			Population:           clonePtr(rec.Population),
			Channels:             filterChannels(rec.Channels, filter),
		})
	}
	return out, nil
}

// GeoBounds returns the first and last sample times for the geo.
func (d *Dataset) GeoBounds(geo string) (time.Time, time.Time, error) {
	series, ok := d.geos[geo]
	if !ok || len(series) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrGeoNotFound, geo)
	}
	return series[0].Time, series[len(series)-1].Time, nil
}

// NationalSeries returns the national records filtered by date range and
// channel set. Returned samples are copies.
func (d *Dataset) NationalSeries(start, end *time.Time, channels []string) ([]NationalSample, error) {
	filter, err := channelFilter(channels)
	if err != nil {
		return nil, err
	}

	out := make([]NationalSample, 0, len(d.national))
	for _, rec := range d.national {
		if start != nil && rec.Time.Before(*start) {
			continue
		}
		if end != nil && rec.Time.After(*end) {
			continue
		}
		out = append(out, NationalSample{
			Time:                 rec.Time,
			Conversions:          clonePtr(rec.Conversions),
			RevenuePerConversion: clonePtr(rec.RevenuePerConversion),
			CompetitorSales:      clonePtr(rec.CompetitorSales),
			SentimentScore:       clonePtr(rec.SentimentScore),
			Promo:                clonePtr(rec.Promo),
			Channels:             filterChannels(rec.Channels, filter),
		})
	}
	return out, nil
}

// NationalBounds returns the first and last national sample times.
func (d *Dataset) NationalBounds() (time.Time, time.Time, error) {
	if len(d.national) == 0 {
		return time.Time{}, time.Time{}, ErrNoData
	}
	return d.national[0].Time, d.national[len(d.national)-1].Time, nil
}

// Totals returns per-channel aggregates sorted by total spend, descending.
func (d *Dataset) Totals() []ChannelTotals {
	out := make([]ChannelTotals, 0, len(d.totals))
	for _, t := range d.totals {
		t.CAC = clonePtr(t.CAC)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spend > out[j].Spend })
	return out
}

// ChannelTotal returns the aggregate for a single channel.
func (d *Dataset) ChannelTotal(id string) (ChannelTotals, bool) {
	t, ok := d.totals[id]
	if ok {
		t.CAC = clonePtr(t.CAC)
	}
	return t, ok
}

// Summary returns the dataset-wide metrics with a copied insight list.
func (d *Dataset) Summary() Summary {
	s := d.summary
	s.Insights = append([]string(nil), d.summary.Insights...)
	return s
}

// Rows returns the number of national records, for health reporting.
func (d *Dataset) Rows() int {
	return len(d.national)
}

// NormalizeChannelID canonicalizes a caller-supplied channel identifier.
// Accepts "channelN", a bare index "N", in any case.
func NormalizeChannelID(raw string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(c, "channel") {
		return c, nil
	}
	if _, err := strconv.Atoi(c); err == nil {
		return "channel" + c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrChannelNotFound, raw)
}

func channelFilter(channels []string) (map[string]bool, error) {
	if len(channels) == 0 {
		return nil, nil
	}
	filter := make(map[string]bool, len(channels))
	for _, c := range channels {
		id, err := NormalizeChannelID(c)
		if err != nil {
			return nil, err
		}
		filter[id] = true
	}
	return filter, nil
}

func filterChannels(channels []ChannelSample, filter map[string]bool) []ChannelSample {
	if filter == nil {
		return cloneChannelSamples(channels)
	}
	out := make([]ChannelSample, 0, len(channels))
	for _, c := range channels {
		if filter[c.ID] {
			if c.OrganicImpressions != nil {
				v := *c.OrganicImpressions
				c.OrganicImpressions = &v
			}
			out = append(out, c)
		}
	}
	return out
}

// channelDisplayName renders "channelN" as "Channel N".
func channelDisplayName(id string) string {
	if n, ok := strings.CutPrefix(id, "channel"); ok {
		return "Channel " + n
	}
	return id
}

func (d *Dataset) loadGeo(path string) error {
	rows, header, err := readCSV(path)
	if err != nil {
		return err
	}

	for _, row := range rows {
		geo := cell(row, header, "geo")
		if geo == "" {
			continue
		}
		t, err := parseDate(cell(row, header, "time"))
		if err != nil {
			return fmt.Errorf("mix: %s: %w", path, err)
		}
		rec := GeoSample{
			Geo:                  geo,
			Time:                 t,
			Conversions:          parseFloat(cell(row, header, "conversions")),
			RevenuePerConversion: parseFloat(cell(row, header, "revenue_per_conversion")),
			CompetitorSales:      parseFloat(cell(row, header, "competitor_sales_control")),
			SentimentScore:       parseFloat(cell(row, header, "sentiment_score_control")),
			Promo:                parseFloat(cell(row, header, "promo")),
			Population:           parseFloat(cell(row, header, "population")),
			Channels:             buildChannels(row, header),
		}
		if _, ok := d.geos[geo]; !ok {
			d.geoOrder = append(d.geoOrder, geo)
		}
		d.geos[geo] = append(d.geos[geo], rec)
	}

	for geo := range d.geos {
		records := d.geos[geo]
		sort.Slice(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })
	}
	return nil
}

func (d *Dataset) loadNational(path string) error {
	rows, header, err := readCSV(path)
	if err != nil {
		return err
	}

	for _, row := range rows {
		t, err := parseDate(cell(row, header, "time"))
		if err != nil {
			return fmt.Errorf("mix: %s: %w", path, err)
		}
		d.national = append(d.national, NationalSample{
			Time:                 t,
			Conversions:          parseFloat(cell(row, header, "conversions")),
			RevenuePerConversion: parseFloat(cell(row, header, "revenue_per_conversion")),
			CompetitorSales:      parseFloat(cell(row, header, "competitor_sales_control")),
			SentimentScore:       parseFloat(cell(row, header, "sentiment_score_control")),
			Promo:                parseFloat(cell(row, header, "promo")),
			Channels:             buildChannels(row, header),
		})
	}

	sort.Slice(d.national, func(i, j int) bool { return d.national[i].Time.Before(d.national[j].Time) })
	return nil
}

// buildChannels extracts the per-channel columns from a row. Only
// channel0 carries an organic impression column in the datasets.
func buildChannels(row []string, header map[string]int) []ChannelSample {
	channels := make([]ChannelSample, 0, ChannelCount)
	for i := 0; i < ChannelCount; i++ {
		id := fmt.Sprintf("channel%d", i)
		c := ChannelSample{
			ID:   id,
			Name: channelDisplayName(id),
		}
		if v := parseFloat(cell(row, header, fmt.Sprintf("channel%d_spend", i))); v != nil {
			c.Spend = *v
		}
		if v := parseFloat(cell(row, header, fmt.Sprintf("channel%d_impression", i))); v != nil {
			c.Impressions = *v
		}
		if i == 0 {
			c.OrganicImpressions = parseFloat(cell(row, header, "organic_channel0_impression"))
		}
		channels = append(channels, c)
	}
	return channels
}

// readCSV reads all rows and returns a lowercased header index.
func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("mix: data file missing: %s", path)
		}
		return nil, nil, fmt.Errorf("mix: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("mix: read header of %s: %w", path, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("mix: read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func cell(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing date value")
	}
	return time.Parse("2006-01-02", raw)
}
