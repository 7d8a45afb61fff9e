package preview

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// trackedBody is a response body that records how much was read and
// whether it was closed.
type trackedBody struct {
	mu     sync.Mutex
	r      io.Reader
	read   int64
	closed bool
}

func (b *trackedBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, errors.New("read on closed body")
	}
	n, err := b.r.Read(p)
	b.read += int64(n)
	return n, err
}

func (b *trackedBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *trackedBody) stats() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read, b.closed
}

// stubFetcher serves fixed bodies by URL and records every request.
type stubFetcher struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	errs     map[string]error
	requests []FetchRequest
	opened   []*trackedBody
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
	}
}

func (f *stubFetcher) serve(url string, body []byte) *stubFetcher {
	f.bodies[url] = body
	return f
}

func (f *stubFetcher) fail(url string, err error) *stubFetcher {
	f.errs[url] = err
	return f
}

func (f *stubFetcher) Fetch(ctx context.Context, req FetchRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[req.URL]; ok {
		return nil, err
	}
	data, ok := f.bodies[req.URL]
	if !ok {
		return nil, &StatusError{URL: req.URL, StatusCode: 404}
	}
	body := &trackedBody{r: bytes.NewReader(data)}
	f.opened = append(f.opened, body)
	return body, nil
}

func (f *stubFetcher) lastBody(t *testing.T) *trackedBody {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.opened, "no body was opened")
	return f.opened[len(f.opened)-1]
}

// featureCollection builds a GeoJSON collection of n points whose
// properties are {"id": i, "name": "feature-i"}, numbered from 1.
func featureCollection(n int) []byte {
	var b strings.Builder
	b.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"type":"Feature","geometry":{"type":"Point","coordinates":[%d.5,-%d.25]},"properties":{"id":%d,"name":"feature-%d"}}`, i, i, i, i)
	}
	b.WriteString(`]}`)
	return []byte(b.String())
}

// csvRows builds a CSV document with a header row and n data rows.
func csvRows(n int) []byte {
	var b strings.Builder
	b.WriteString("id,name,city\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,row-%d,City %d\n", i, i, i)
	}
	return []byte(b.String())
}

// zipOf builds an archive the way streaming writers do: deflated entries
// followed by data descriptors.
func zipOf(t *testing.T, files ...zipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type zipFile struct {
	name string
	data []byte
}

// newJob returns a job over fetcher with a fresh accumulator.
func newJob(desc SourceDescriptor, fetcher Fetcher) *job {
	return &job{
		desc:    desc,
		fetcher: fetcher,
		acc:     NewAccumulator(SampleSize, false),
		opts:    DefaultOptions(),
	}
}

// intValue returns the numeric value stored under key as an int.
func intValue(t *testing.T, rec Record, key string) int {
	t.Helper()
	v, ok := rec.Get(key)
	require.True(t, ok, "key %q missing", key)
	f, ok := v.(float64)
	require.True(t, ok, "key %q is %T, want float64", key, v)
	return int(f)
}
