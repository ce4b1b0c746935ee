package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/veritas/internal/application"
	"github.com/bryanwahyu/veritas/internal/domain/ai"
	domain "github.com/bryanwahyu/veritas/internal/domain/analysis"
	"github.com/bryanwahyu/veritas/internal/domain/archive"
	"github.com/bryanwahyu/veritas/internal/domain/evidence"
	"github.com/bryanwahyu/veritas/internal/infra/metrics"
	"github.com/bryanwahyu/veritas/internal/logger"
)

const DefaultMaxContentChars = 15000

// Acquirer fetches page evidence for a URL.
type Acquirer interface {
	Acquire(ctx context.Context, url string) evidence.Outcome
}

// Forgetter is implemented by acquirers that cache evidence.
type Forgetter interface {
	Forget(url string)
}

// Prompts renders the three reasoning prompts.
type Prompts interface {
	Direct(url, content string) ai.Prompt
	Investigative(url, identifier string) ai.Prompt
	Vision(source string, img *ai.Image) ai.Prompt
}

// Owner is implemented by history stores that belong to a named session.
type Owner interface {
	OwnerID() string
}

var supportedImages = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Service runs one analysis per request. Reasoner and Prompts are required; Acquirer is
// required for URL requests. Images and Archive are optional.
type Service struct {
	Reasoner   ai.Client
	Acquirer   Acquirer
	Prompts    Prompts
	Normalizer domain.Normalizer
	Images     domain.ImageStore
	Archive    archive.Repository
	Clock      application.Clock
	NewID      func() string

	MaxContentChars    int
	ScreenshotFallback bool
}

// Analyze dispatches on the request variant. A failed analysis leaves history untouched.
func (s *Service) Analyze(ctx context.Context, history domain.HistoryStore, req domain.Request) (*domain.Report, error) {
	switch r := req.(type) {
	case domain.ReplayRequest:
		return s.replay(r)
	case domain.URLRequest:
		if s.Reasoner == nil || s.Acquirer == nil {
			return nil, domain.ErrMissingCredentials
		}
		return s.analyzeURL(ctx, history, r)
	case domain.ImageRequest:
		if s.Reasoner == nil {
			return nil, domain.ErrMissingCredentials
		}
		return s.analyzeImage(ctx, history, r)
	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
}

func (s *Service) replay(r domain.ReplayRequest) (*domain.Report, error) {
	if r.Record == nil {
		return nil, domain.ErrEmptyInput
	}
	rec := r.Record
	score := s.Normalizer.Scores.Snap(rec.Score)
	verdict := rec.Verdict
	if s.Normalizer.StandardVerdict || strings.TrimSpace(verdict) == "" {
		verdict = domain.Verdict(score)
	}
	metrics.ObserveAnalysis(string(domain.PathReplay), "ok")
	return &domain.Report{
		Source:   rec.Source,
		Score:    score,
		Verdict:  verdict,
		ImageURL: rec.ImageURL,
		Path:     domain.PathReplay,
		Result:   rec.Result,
		Record:   rec,
	}, nil
}

func (s *Service) analyzeURL(ctx context.Context, history domain.HistoryStore, r domain.URLRequest) (*domain.Report, error) {
	url := strings.TrimSpace(r.URL)
	if url == "" {
		return nil, domain.ErrEmptyInput
	}
	log := logger.Log.WithField("url", url)

	if f, ok := s.Acquirer.(Forgetter); ok && r.Refresh {
		f.Forget(url)
	}
	out := s.Acquirer.Acquire(ctx, url)
	log = log.WithFields(logrus.Fields{"state": out.State, "attempts": out.Attempts})

	if out.Succeeded() {
		p := s.Prompts.Direct(url, clip(out.Page.Text, s.maxContentChars()))
		raw, err := s.Reasoner.Generate(ctx, p)
		if err != nil {
			metrics.ObserveAnalysis(string(domain.PathDirect), "error")
			return nil, fmt.Errorf("direct analysis: %w", err)
		}
		a := s.Normalizer.Finalize(raw, url)
		if !a.Zombie() {
			return s.accept(ctx, history, a.Result, domain.PathDirect, domain.InputURL, url, out.Page.ImageURL), nil
		}
		log.WithFields(logrus.Fields{"name": a.Result.ProductName, "score": a.Result.Score}).
			Info("[analysis] non-committal answer, falling back")
	} else {
		log.Info("[analysis] page not readable, falling back")
	}

	if s.ScreenshotFallback && out.ScreenshotURL != "" {
		if rep, ok := s.tryScreenshot(ctx, history, url, out.ScreenshotURL); ok {
			return rep, nil
		}
	}

	identifier := s.Normalizer.Names.DeriveIdentifier(url)
	raw, err := s.Reasoner.Generate(ctx, s.Prompts.Investigative(url, identifier))
	if err != nil {
		metrics.ObserveAnalysis(string(domain.PathInvestigative), "error")
		return nil, fmt.Errorf("investigative analysis: %w", err)
	}
	a := s.Normalizer.Finalize(raw, url)
	// the screenshot of a blocked page shows the wall, not the product
	return s.accept(ctx, history, a.Result, domain.PathInvestigative, domain.InputURL, url, ""), nil
}

// tryScreenshot reads the captured screenshot of a blocked page. Any failure or a
// non-committal answer hands over to the investigative path.
func (s *Service) tryScreenshot(ctx context.Context, history domain.HistoryStore, url, shot string) (*domain.Report, bool) {
	log := logger.Log.WithField("url", url)
	raw, err := s.Reasoner.Generate(ctx, s.Prompts.Vision(url, &ai.Image{URL: shot}))
	if err != nil {
		log.WithError(err).Warn("[analysis] screenshot analysis failed")
		return nil, false
	}
	a := s.Normalizer.Finalize(raw, url)
	if a.Zombie() {
		return nil, false
	}
	return s.accept(ctx, history, a.Result, domain.PathScreenshot, domain.InputURL, url, shot), true
}

func (s *Service) analyzeImage(ctx context.Context, history domain.HistoryStore, r domain.ImageRequest) (*domain.Report, error) {
	if len(r.Data) == 0 {
		return nil, domain.ErrEmptyInput
	}
	mime := strings.ToLower(strings.TrimSpace(r.MIME))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(r.Data)
	}
	if !supportedImages[mime] {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, mime)
	}

	raw, err := s.Reasoner.Generate(ctx, s.Prompts.Vision("", &ai.Image{Data: r.Data, MIME: mime}))
	if err != nil {
		metrics.ObserveAnalysis(string(domain.PathVision), "error")
		return nil, fmt.Errorf("vision analysis: %w", err)
	}
	a := s.Normalizer.Finalize(raw, "")

	imageURL := ""
	if s.Images != nil {
		if u, err := s.Images.PutImage(ctx, r.Data, mime); err != nil {
			logger.Log.WithError(err).Warn("[analysis] screenshot upload failed")
		} else {
			imageURL = u
		}
	}
	return s.accept(ctx, history, a.Result, domain.PathVision, domain.InputImage, "screenshot", imageURL), nil
}

func (s *Service) accept(ctx context.Context, history domain.HistoryStore, res domain.Result, path domain.Path, kind domain.InputKind, input, imageURL string) *domain.Report {
	rec := history.Append(domain.Record{
		ID:        domain.RecordID(s.newID()),
		Source:    res.ProductName,
		Score:     res.Score,
		Verdict:   res.Verdict,
		Result:    res,
		ImageURL:  imageURL,
		InputKind: kind,
		Input:     input,
		CreatedAt: s.now(),
	})
	metrics.ObserveAnalysis(string(path), "ok")
	logger.Log.WithFields(logrus.Fields{
		"path":  path,
		"name":  res.ProductName,
		"score": res.Score,
	}).Info("[analysis] completed")

	s.archive(ctx, history, rec)

	return &domain.Report{
		Source:   rec.Source,
		Score:    rec.Score,
		Verdict:  rec.Verdict,
		ImageURL: rec.ImageURL,
		Path:     path,
		Result:   rec.Result,
		Record:   rec,
	}
}

// archive mirrors the record; failures are logged and never reach the caller.
func (s *Service) archive(ctx context.Context, history domain.HistoryStore, rec *domain.Record) {
	if s.Archive == nil {
		return
	}
	owner := ""
	if o, ok := history.(Owner); ok {
		owner = o.OwnerID()
	}
	e, err := archive.FromRecord(owner, rec)
	if err == nil {
		err = s.Archive.Save(ctx, e)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).WithField("record", rec.ID).Warn("[analysis] archive save failed")
	}
}

func (s *Service) maxContentChars() int {
	if s.MaxContentChars <= 0 {
		return DefaultMaxContentChars
	}
	return s.MaxContentChars
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// clip keeps at most n runes.
func clip(text string, n int) string {
	if len(text) <= n {
		return text
	}
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
