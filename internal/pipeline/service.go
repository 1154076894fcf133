// Package pipeline provides orchestration for the vidgrab workflow.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vidgrab/internal/catalog"
	"vidgrab/internal/httpclient"
	"vidgrab/internal/logging"
	"vidgrab/internal/progress"
	"vidgrab/internal/query"
	"vidgrab/internal/selection"
	"vidgrab/internal/transfer"
	"vidgrab/internal/util"
	"vidgrab/internal/util/format"
)

const (
	DefaultHost = "www.youtube.com"
	infoPath    = "/get_video_info"

	// maxInfoBytes bounds the metadata response held in memory.
	maxInfoBytes = 16 << 20
)

// Service orchestrates the fetch → catalog → select → transfer workflow.
type Service struct {
	client    httpclient.Getter
	host      string
	chooser   selection.Chooser
	reporter  progress.Reporter
	sink      progress.Sink
	jobID     string
	outDir    string
	chunkSize int
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClient sets the HTTP client used for both the metadata and stream requests.
func WithClient(c httpclient.Getter) Option {
	return func(s *Service) {
		s.client = c
	}
}

// WithHost overrides the metadata host.
func WithHost(h string) Option {
	return func(s *Service) {
		s.host = h
	}
}

// WithChooser sets how a stream is picked from the catalog.
func WithChooser(c selection.Chooser) Option {
	return func(s *Service) {
		s.chooser = c
	}
}

// WithReporter attaches a stage reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithSink sets the progress sink driven by the transfer.
func WithSink(sk progress.Sink) Option {
	return func(s *Service) {
		s.sink = sk
	}
}

// WithJobID sets the job ID associated with reporter events and log lines.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// WithOutDir sets the directory the stream is written to.
func WithOutDir(dir string) Option {
	return func(s *Service) {
		s.outDir = dir
	}
}

func WithChunkSize(n int) Option {
	return func(s *Service) {
		s.chunkSize = n
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		s.client = httpclient.New(httpclient.DefaultConfig())
	}
	if s.host == "" {
		s.host = DefaultHost
	}
	if s.sink == nil {
		s.sink = progress.Nop{}
	}
	if s.jobID == "" {
		s.jobID = uuid.NewString()
	}
	if s.outDir == "" {
		s.outDir = "."
	}
	if s.chunkSize <= 0 {
		s.chunkSize = transfer.DefaultChunkSize
	}
	s.log = logging.Component("pipeline").With().Str("job", s.jobID).Logger()
	return s
}

// JobID returns the identifier attached to this service's events.
func (s *Service) JobID() string {
	return s.jobID
}

// InfoURL returns the metadata endpoint for a video id.
func (s *Service) InfoURL(videoID string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     s.host,
		Path:     infoPath,
		RawQuery: url.Values{"video_id": {videoID}}.Encode(),
	}
	return u.String()
}

// Info is the listing for one video: its metadata and stream catalog.
type Info struct {
	VideoID  string
	Metadata catalog.Metadata
	Catalog  catalog.Catalog
}

// Result returns the outcome of RunJob.
type Result struct {
	VideoID    string
	Title      string
	Entry      catalog.Entry
	OutputPath string
	Bytes      int64
}

// FetchMetadata downloads and decodes the info document. A status other
// than "ok" fails here, before anything touches the filesystem.
func (s *Service) FetchMetadata(ctx context.Context, videoID string) (catalog.Metadata, error) {
	s.emit(progress.StageMetadata, "Please wait...")
	infoURL := s.InfoURL(videoID)
	s.log.Debug().Str("url", infoURL).Msg("fetching video info")

	resp, err := s.client.Get(ctx, infoURL)
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("fetch info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInfoBytes+1))
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("read info: %w", err)
	}
	if len(body) > maxInfoBytes {
		return catalog.Metadata{}, fmt.Errorf("%w: info response exceeds %d bytes", query.ErrMalformedInput, maxInfoBytes)
	}
	s.log.Debug().Int("bytes", len(body)).Msg("info received")

	fields, err := query.Decode(string(body))
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("decode info: %w", err)
	}
	return catalog.NewMetadata(fields)
}

// Info fetches metadata and builds the catalog without selecting or
// downloading anything.
func (s *Service) Info(ctx context.Context, videoID string) (Info, error) {
	meta, err := s.FetchMetadata(ctx, videoID)
	if err != nil {
		return Info{}, s.fail(err)
	}
	cat, err := catalog.Build(meta)
	if err != nil {
		return Info{}, s.fail(err)
	}
	s.emit(progress.StageCatalog, "")
	s.log.Debug().Int("streams", cat.Len()).Msg("catalog built")
	return Info{VideoID: videoID, Metadata: meta, Catalog: cat}, nil
}

// RunJob executes the full pipeline for a single video id.
// It never prints; when a Reporter is present, it emits stage updates and a final Result.
func (s *Service) RunJob(ctx context.Context, videoID string) (Result, error) {
	res := Result{VideoID: videoID}
	if s.chooser == nil {
		return res, fmt.Errorf("no stream chooser configured")
	}

	info, err := s.Info(ctx, videoID)
	if err != nil {
		return res, err
	}
	res.Title = info.Metadata.Title()

	s.emit(progress.StageSelecting, "")
	entry, err := s.chooser.Choose(info.Catalog)
	if err != nil {
		return res, s.fail(err)
	}
	res.Entry = entry
	res.OutputPath = util.OutputFilename(s.outDir, res.Title, entry.Extension)
	s.log.Debug().Int("ordinal", entry.Ordinal).Str("quality", entry.Quality).Str("dest", res.OutputPath).Msg("stream selected")

	s.emit(progress.StageDownloading, "Download is starting...")
	eng := transfer.New(s.client, s.chunkSize)
	n, err := eng.Transfer(ctx, entry.URL, res.OutputPath, s.sink)
	res.Bytes = n
	if err != nil {
		return res, s.fail(err)
	}

	s.emitSaved(res)
	return res, nil
}

func (s *Service) emit(stage progress.Stage, msg string) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{JobID: s.jobID, Stage: stage, Message: msg})
}

// fail reports err as the job's terminal result and returns it unchanged.
func (s *Service) fail(err error) error {
	s.log.Debug().Err(err).Msg("job failed")
	if s.reporter != nil {
		s.reporter.Update(progress.Update{JobID: s.jobID, Stage: progress.StageError})
		s.reporter.Result(progress.Result{JobID: s.jobID, Err: err})
	}
	return err
}

// emitSaved sends a final "saved" update and reporter result.
func (s *Service) emitSaved(res Result) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Message: fmt.Sprintf("Download complete: %s", format.HumanizeBytes(res.Bytes)),
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		OutputPath: res.OutputPath,
		Bytes:      res.Bytes,
	})
}
