package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// arcgisError is the envelope ArcGIS servers return, with a 200 status,
// when a request fails.
type arcgisError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type arcgisLayer struct {
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Error *arcgisError `json:"error"`
}

type arcgisFeatureSet struct {
	Features []struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"features"`
	Error *arcgisError `json:"error"`
}

// extractArcGIS runs the schema and sample queries of an ArcGIS layer
// concurrently. Neither failure affects the other; both have finished when
// it returns.
func extractArcGIS(ctx context.Context, j *job) []StepResult {
	j.acc.begin()

	steps := make([]StepResult, 2)
	var g errgroup.Group
	g.Go(func() error {
		steps[0] = arcgisSchema(ctx, j)
		return nil
	})
	g.Go(func() error {
		steps[1] = arcgisSample(ctx, j)
		return nil
	})
	g.Wait()

	return steps
}

// arcgisSchema reads the layer definition and sets fields from it.
func arcgisSchema(ctx context.Context, j *job) StepResult {
	res := StepResult{Step: "arcgis.schema"}

	var layer arcgisLayer
	n, err := fetchJSON(ctx, j, FetchRequest{
		URL:    j.desc.URL,
		Query:  url.Values{"f": {"json"}},
		Accept: "application/json",
	}, &layer)
	res.BytesRead = n
	if err != nil {
		return res.fail(err)
	}
	if layer.Error != nil {
		return res.fail(fmt.Errorf("%w: %d %s", ErrArcGISError, layer.Error.Code, layer.Error.Message))
	}
	if layer.Fields == nil {
		return res.fail(fmt.Errorf("%w: fields", ErrMissingMember))
	}

	names := make([]string, len(layer.Fields))
	for i, f := range layer.Fields {
		names[i] = f.Name
	}
	j.acc.SetFields(names)
	res.OK = true
	return res
}

// arcgisSample queries the first page of features and appends their
// attributes. The server bounds the page size; the accumulator cap still
// applies if it does not.
func arcgisSample(ctx context.Context, j *job) StepResult {
	res := StepResult{Step: "arcgis.sample"}

	var set arcgisFeatureSet
	n, err := fetchJSON(ctx, j, FetchRequest{
		URL: strings.TrimSuffix(j.desc.URL, "/") + "/query",
		Query: url.Values{
			"outFields":         {"*"},
			"where":             {"1=1"},
			"resultRecordCount": {strconv.Itoa(j.acc.limit)},
			"resultOffset":      {"0"},
			"f":                 {"json"},
		},
		Accept: "application/json",
	}, &set)
	res.BytesRead = n
	if err != nil {
		return res.fail(err)
	}
	if set.Error != nil {
		return res.fail(fmt.Errorf("%w: %d %s", ErrArcGISError, set.Error.Code, set.Error.Message))
	}
	if set.Features == nil {
		return res.fail(fmt.Errorf("%w: features", ErrMissingMember))
	}

	for _, f := range set.Features {
		rec, err := decodeRecord(f.Attributes)
		if err != nil {
			return res.fail(err)
		}
		if !j.acc.Append(rec) {
			break
		}
		res.Records++
	}
	res.OK = true
	return res
}

// fetchJSON fetches req and decodes the body into v. The body is read
// through a size limit; it returns the number of bytes read.
func fetchJSON(ctx context.Context, j *job, req FetchRequest, v any) (int64, error) {
	body, err := j.fetcher.Fetch(ctx, req)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	limit := j.opts.MaxJSONBytes
	counter := NewCountingReader(io.LimitReader(body, limit+1))
	data, err := io.ReadAll(counter)
	if err != nil {
		return counter.BytesRead, err
	}
	if int64(len(data)) > limit {
		return counter.BytesRead, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return counter.BytesRead, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return counter.BytesRead, nil
}
