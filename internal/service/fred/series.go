package fred

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"ChartCrime/internal/domain/models"
	drepo "ChartCrime/internal/domain/repository"
	"ChartCrime/pkg/util"
)

const (
	EndpointObservations     = "series/observations"
	EndpointCategorySeries   = "category/series"
	EndpointCategoryChildren = "category/children"
	EndpointSeriesUpdates    = "series/updates"

	// DailyFrequency is the frequency_short code of daily series.
	DailyFrequency = "D"

	updatesTimeLayout = "2006-01-02 15:04:05"
)

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type seriesPayload struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Units          string `json:"units"`
	Popularity     int    `json:"popularity"`
	FrequencyShort string `json:"frequency_short"`
	ObservationEnd string `json:"observation_end"`
	LastUpdated    string `json:"last_updated"`
}

func (p seriesPayload) toModel() models.Series {
	return models.Series{
		ID:             p.ID,
		Title:          p.Title,
		Units:          p.Units,
		Popularity:     p.Popularity,
		Frequency:      p.FrequencyShort,
		ObservationEnd: p.ObservationEnd,
		LastUpdated:    p.LastUpdated,
	}
}

type seriesListResponse struct {
	Count  int             `json:"count"`
	Series []seriesPayload `json:"seriess"`
}

type categoriesResponse struct {
	Categories []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		ParentID int    `json:"parent_id"`
	} `json:"categories"`
}

// Observations returns the series values from start (inclusive) in ascending
// date order. A zero end leaves the range open. Missing values (".") are
// skipped; any other unparsable value is an error.
func (c *Client) Observations(ctx context.Context, seriesID string, start, end time.Time) ([]models.Observation, error) {
	params := url.Values{
		"series_id":  {seriesID},
		"limit":      {"100000"},
		"sort_order": {"asc"},
	}
	if !start.IsZero() {
		params.Set("observation_start", util.FormatDate(start))
	}
	if !end.IsZero() {
		params.Set("observation_end", util.FormatDate(end))
	}

	var resp observationsResponse
	if err := c.get(ctx, EndpointObservations, params, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Observation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if o.Value == "." {
			continue
		}
		d, err := util.ParseDate(o.Date)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", seriesID, err)
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("series %s: parse value %q on %s: %w", seriesID, o.Value, o.Date, err)
		}
		out = append(out, models.Observation{Date: d, Value: v})
	}
	return out, nil
}

// CategorySeriesIDs returns the ids of every series in a category.
func (c *Client) CategorySeriesIDs(ctx context.Context, categoryID int) ([]string, error) {
	var ids []string
	err := c.paginate(ctx, EndpointCategorySeries, url.Values{
		"category_id": {strconv.Itoa(categoryID)},
		"sort_order":  {"asc"},
	}, func(batch []seriesPayload) {
		for _, s := range batch {
			if s.ID != "" {
				ids = append(ids, s.ID)
			}
		}
	})
	return ids, err
}

// CategorySeries returns the daily-frequency series of a category, most
// recently observed first.
func (c *Client) CategorySeries(ctx context.Context, categoryID int) ([]models.Series, error) {
	var out []models.Series
	err := c.paginate(ctx, EndpointCategorySeries, url.Values{
		"category_id":     {strconv.Itoa(categoryID)},
		"filter_variable": {"frequency"},
		"filter_value":    {"Daily"},
		"order_by":        {"observation_end"},
		"sort_order":      {"desc"},
	}, func(batch []seriesPayload) {
		for _, s := range batch {
			out = append(out, s.toModel())
		}
	})
	return out, err
}

// CategoryChildren returns the direct subcategories of a category.
func (c *Client) CategoryChildren(ctx context.Context, categoryID int) ([]models.CategoryNode, error) {
	var resp categoriesResponse
	if err := c.get(ctx, EndpointCategoryChildren, url.Values{"category_id": {strconv.Itoa(categoryID)}}, &resp); err != nil {
		return nil, err
	}
	out := make([]models.CategoryNode, 0, len(resp.Categories))
	for _, cat := range resp.Categories {
		out = append(out, models.CategoryNode{ID: cat.ID, Name: cat.Name, ParentID: cat.ParentID})
	}
	return out, nil
}

// SeriesUpdates returns every series updated within [start, end], newest first.
func (c *Client) SeriesUpdates(ctx context.Context, start, end time.Time) ([]models.Series, error) {
	var out []models.Series
	err := c.paginate(ctx, EndpointSeriesUpdates, url.Values{
		"start_time": {start.UTC().Format(updatesTimeLayout)},
		"end_time":   {end.UTC().Format(updatesTimeLayout)},
		"sort_order": {"desc"},
	}, func(batch []seriesPayload) {
		for _, s := range batch {
			out = append(out, s.toModel())
		}
	})
	return out, err
}

// paginate walks a list endpoint in full pages until a short page.
func (c *Client) paginate(ctx context.Context, endpoint string, params url.Values, fn func([]seriesPayload)) error {
	params.Set("limit", strconv.Itoa(pageSize))
	for offset := 0; ; offset += pageSize {
		params.Set("offset", strconv.Itoa(offset))
		var resp seriesListResponse
		if err := c.get(ctx, endpoint, params, &resp); err != nil {
			return err
		}
		fn(resp.Series)
		if len(resp.Series) < pageSize {
			return nil
		}
	}
}

var (
	_ drepo.SeriesSource  = (*Client)(nil)
	_ drepo.CatalogSource = (*Client)(nil)
)
