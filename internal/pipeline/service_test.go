package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"vidgrab/internal/catalog"
	"vidgrab/internal/httpclient"
	"vidgrab/internal/progress"
	"vidgrab/internal/query"
	"vidgrab/internal/selection"
	"vidgrab/internal/transfer"
)

type recordingReporter struct {
	updates []progress.Update
	results []progress.Result
}

func (r *recordingReporter) Update(u progress.Update) {
	r.updates = append(r.updates, u)
}
func (r *recordingReporter) Result(res progress.Result) {
	r.results = append(r.results, res)
}

func (r *recordingReporter) stages() []progress.Stage {
	var out []progress.Stage
	for _, u := range r.updates {
		out = append(out, u.Stage)
	}
	return out
}

type recordingSink struct {
	total    int64
	advanced int64
	finished bool
}

func (r *recordingSink) Start(total int64) { r.total = total }
func (r *recordingSink) Advance(n int64)   { r.advanced += n }
func (r *recordingSink) Finish(error)      { r.finished = true }

// fakeGetter serves canned bodies keyed by URL and records requests.
type fakeGetter struct {
	bodies   map[string][]byte
	errs     map[string]error
	requests []string
}

func (f *fakeGetter) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	f.requests = append(f.requests, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	b, ok := f.bodies[rawURL]
	if !ok {
		return nil, errors.New("unexpected url " + rawURL)
	}
	h := http.Header{}
	h.Set("Content-Length", strconv.Itoa(len(b)))
	return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(bytes.NewReader(b))}, nil
}

type scriptedChooser struct {
	ordinal int
	err     error
	seen    int
}

func (c *scriptedChooser) Choose(cat catalog.Catalog) (catalog.Entry, error) {
	c.seen = cat.Len()
	if c.err != nil {
		return catalog.Entry{}, c.err
	}
	return selection.Resolve(cat, c.ordinal)
}

const (
	videoID  = "abc123"
	infoURL  = "https://www.youtube.com/get_video_info?video_id=abc123"
	stream1  = "https://media.example/1"
	stream2  = "https://media.example/2"
	testHost = "www.youtube.com"
)

func infoBody(status, title string) []byte {
	streams := url.Values{"url": {stream1}, "type": {"video/mp4; codecs=\"avc1\""}, "quality": {"hd720"}}.Encode() +
		"," + url.Values{"url": {stream2}, "type": {"video/webm"}, "quality": {"medium"}}.Encode()
	v := url.Values{}
	v.Set(catalog.FieldStatus, status)
	if title != "" {
		v.Set(catalog.FieldTitle, title)
	}
	v.Set(catalog.FieldStreamMap, streams)
	if status != catalog.StatusOK {
		v.Set(catalog.FieldReason, "This video is private.")
		v.Set(catalog.FieldErrorCode, "150")
	}
	return []byte(v.Encode())
}

func TestNewService_Defaults(t *testing.T) {
	s := NewService()
	if s.host != DefaultHost {
		t.Errorf("host = %q", s.host)
	}
	if s.outDir != "." {
		t.Errorf("outDir = %q", s.outDir)
	}
	if s.chunkSize != transfer.DefaultChunkSize {
		t.Errorf("chunkSize = %d", s.chunkSize)
	}
	if s.jobID == "" || s.client == nil || s.sink == nil {
		t.Errorf("defaults missing: %+v", s)
	}

	s2 := NewService(WithJobID("job-1"), WithHost("example.test"), WithChunkSize(10), WithOutDir("out"))
	if s2.JobID() != "job-1" || s2.host != "example.test" || s2.chunkSize != 10 || s2.outDir != "out" {
		t.Errorf("options not applied: %+v", s2)
	}
}

func TestInfoURL(t *testing.T) {
	s := NewService(WithHost("example.test"))
	got := s.InfoURL("a b&c")
	want := "https://example.test/get_video_info?video_id=a+b%26c"
	if got != want {
		t.Errorf("InfoURL() = %q, want %q", got, want)
	}
}

func TestRunJob_Success(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte{0x00, 0xff, 0x1f}, 1000)
	g := &fakeGetter{bodies: map[string][]byte{
		infoURL: infoBody("ok", "My Clip"),
		stream2: payload,
	}}
	rep := &recordingReporter{}
	sink := &recordingSink{}
	ch := &scriptedChooser{ordinal: 2}

	s := NewService(WithClient(g), WithHost(testHost), WithChooser(ch), WithReporter(rep),
		WithSink(sink), WithOutDir(dir), WithJobID("job-1"), WithChunkSize(256))

	res, err := s.RunJob(context.Background(), videoID)
	if err != nil {
		t.Fatalf("RunJob() error = %v", err)
	}
	wantPath := filepath.Join(dir, "My Clip.webm")
	if res.OutputPath != wantPath || res.Bytes != int64(len(payload)) || res.Title != "My Clip" {
		t.Errorf("result = %+v", res)
	}
	if res.Entry.Ordinal != 2 || res.Entry.Quality != "medium" {
		t.Errorf("entry = %+v", res.Entry)
	}
	if ch.seen != 2 {
		t.Errorf("chooser saw %d entries, want 2", ch.seen)
	}
	got, err := os.ReadFile(wantPath)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("file mismatch (err=%v)", err)
	}
	if sink.total != int64(len(payload)) || sink.advanced != int64(len(payload)) || !sink.finished {
		t.Errorf("sink = %+v", sink)
	}
	if len(g.requests) != 2 || g.requests[0] != infoURL || g.requests[1] != stream2 {
		t.Errorf("requests = %v", g.requests)
	}

	wantStages := []progress.Stage{progress.StageMetadata, progress.StageCatalog, progress.StageSelecting, progress.StageDownloading, progress.StageCompleted}
	if got := rep.stages(); !equalStages(got, wantStages) {
		t.Errorf("stages = %v, want %v", got, wantStages)
	}
	for _, u := range rep.updates {
		if u.JobID != "job-1" {
			t.Errorf("update without job id: %+v", u)
		}
	}
	if len(rep.results) != 1 || rep.results[0].Err != nil || rep.results[0].OutputPath != wantPath {
		t.Errorf("results = %+v", rep.results)
	}
}

func TestRunJob_UnavailableCreatesNoFile(t *testing.T) {
	dir := t.TempDir()
	g := &fakeGetter{bodies: map[string][]byte{infoURL: infoBody("fail", "My Clip")}}
	ch := &scriptedChooser{ordinal: 1}
	rep := &recordingReporter{}
	s := NewService(WithClient(g), WithChooser(ch), WithOutDir(dir), WithReporter(rep))

	_, err := s.RunJob(context.Background(), videoID)
	if !errors.Is(err, catalog.ErrVideoUnavailable) {
		t.Fatalf("error = %v, want ErrVideoUnavailable", err)
	}
	if !strings.Contains(err.Error(), "This video is private.") {
		t.Errorf("reason not surfaced: %v", err)
	}
	if ch.seen != 0 {
		t.Errorf("chooser must not be consulted")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no file should be created, found %d", len(entries))
	}
	if len(g.requests) != 1 {
		t.Errorf("only the info request should be made, got %v", g.requests)
	}
	if len(rep.results) != 1 || rep.results[0].Err == nil {
		t.Errorf("failure result not reported: %+v", rep.results)
	}
}

func TestRunJob_Errors(t *testing.T) {
	tests := []struct {
		name    string
		bodies  map[string][]byte
		errs    map[string]error
		chooser *scriptedChooser
		want    error
	}{
		{
			name:    "info request fails",
			errs:    map[string]error{infoURL: httpclient.ErrNetwork},
			chooser: &scriptedChooser{ordinal: 1},
			want:    httpclient.ErrNetwork,
		},
		{
			name:    "malformed info body",
			bodies:  map[string][]byte{infoURL: []byte("status=ok&title=%zz")},
			chooser: &scriptedChooser{ordinal: 1},
			want:    query.ErrMalformedInput,
		},
		{
			name:    "oversized info body",
			bodies:  map[string][]byte{infoURL: append(infoBody("ok", "x"), bytes.Repeat([]byte("a"), maxInfoBytes)...)},
			chooser: &scriptedChooser{ordinal: 1},
			want:    query.ErrMalformedInput,
		},
		{
			name:    "missing title",
			bodies:  map[string][]byte{infoURL: infoBody("ok", "")},
			chooser: &scriptedChooser{ordinal: 1},
			want:    catalog.ErrMalformedMetadata,
		},
		{
			name:    "no streams",
			bodies:  map[string][]byte{infoURL: []byte("status=ok&title=x")},
			chooser: &scriptedChooser{ordinal: 1},
			want:    catalog.ErrNoStreams,
		},
		{
			name:    "ordinal out of range",
			bodies:  map[string][]byte{infoURL: infoBody("ok", "x")},
			chooser: &scriptedChooser{ordinal: 3},
			want:    selection.ErrInvalidSelection,
		},
		{
			name:    "stream request fails",
			bodies:  map[string][]byte{infoURL: infoBody("ok", "x")},
			errs:    map[string]error{stream1: httpclient.ErrNetwork},
			chooser: &scriptedChooser{ordinal: 1},
			want:    httpclient.ErrNetwork,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGetter{bodies: tt.bodies, errs: tt.errs}
			s := NewService(WithClient(g), WithChooser(tt.chooser), WithOutDir(t.TempDir()))
			if _, err := s.RunJob(context.Background(), videoID); !errors.Is(err, tt.want) {
				t.Errorf("RunJob() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunJob_RequiresChooser(t *testing.T) {
	s := NewService(WithClient(&fakeGetter{}))
	if _, err := s.RunJob(context.Background(), videoID); err == nil {
		t.Fatal("expected error without a chooser")
	}
}

func TestInfo_ListsCatalogOnly(t *testing.T) {
	dir := t.TempDir()
	g := &fakeGetter{bodies: map[string][]byte{infoURL: infoBody("ok", "Listing")}}
	s := NewService(WithClient(g), WithOutDir(dir))

	info, err := s.Info(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Metadata.Title() != "Listing" || info.Catalog.Len() != 2 {
		t.Errorf("info = %+v", info)
	}
	e, _ := info.Catalog.Get(1)
	if e.URL != stream1 || e.Extension != "mp4" {
		t.Errorf("entry 1 = %+v", e)
	}
	if len(g.requests) != 1 {
		t.Errorf("Info must not fetch streams: %v", g.requests)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Info must not create files")
	}
}

func equalStages(a, b []progress.Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
