package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/storypress/storypress/internal/compose"
	"github.com/storypress/storypress/internal/home"
	"github.com/storypress/storypress/internal/pdf"
	"github.com/storypress/storypress/internal/prepress"
	"github.com/storypress/storypress/internal/providers"
)

// ErrPrintPending signals that a submitted print job has not finished
// yet. The worker re-enqueues the tracking stage instead of counting it
// as a failure.
var ErrPrintPending = errors.New("print job still in progress")

// minVisionScore is the lowest acceptable artwork quality score. Pages
// scoring below it are regenerated once.
const minVisionScore = 6

// targetPageCount is the page count suggested to the scene breakdown
// model. The final count is whatever the model returns, padded to even
// at assembly time.
const targetPageCount = 12

// Handlers implements the per-stage work. Every handler is idempotent:
// it checks for existing outputs before regenerating them, so a
// redelivered job re-runs safely.
type Handlers struct {
	registry   *providers.Registry
	store      Store
	homeDir    *home.Dir
	print      PrintClient
	logger     *slog.Logger
	httpClient *http.Client

	prepressOpts prepress.Options
	textConfig   compose.TextConfig
	iccProfile   string

	// visionScore gates generated artwork behind a quality check when
	// a provider is routed for the vision_score stage.
	visionScore bool

	// visionPlacement asks the vision model where the overlay band
	// should sit; off, placement is purely heuristic.
	visionPlacement bool
}

// HandlersConfig wires the stage handlers.
type HandlersConfig struct {
	Registry     *providers.Registry
	Store        Store
	HomeDir      *home.Dir
	Print        PrintClient
	Logger       *slog.Logger
	PrepressOpts prepress.Options
	TextConfig   compose.TextConfig
	ICCProfile      string
	VisionScore     bool
	VisionPlacement bool
}

// NewHandlers creates the stage handler set.
func NewHandlers(cfg HandlersConfig) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := cfg.PrepressOpts
	if opts.TargetWidth == 0 {
		opts = prepress.DefaultOptions()
	}
	textCfg := cfg.TextConfig
	if textCfg.FontSize == 0 {
		textCfg = compose.DefaultTextConfig()
	}
	return &Handlers{
		registry:     cfg.Registry,
		store:        cfg.Store,
		homeDir:      cfg.HomeDir,
		print:        cfg.Print,
		logger:       logger,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		prepressOpts: opts,
		textConfig:   textCfg,
		iccProfile:      cfg.ICCProfile,
		visionScore:     cfg.VisionScore,
		visionPlacement: cfg.VisionPlacement,
	}
}

// HandlerFunc runs one stage for one story. The story argument is a
// private copy; handlers persist results through the store.
type HandlerFunc func(ctx context.Context, story *Story) error

// Handler returns the function for a stage.
func (h *Handlers) Handler(stage Stage) (HandlerFunc, error) {
	switch stage {
	case StageBriefExtract:
		return h.handleBriefExtract, nil
	case StageStoryReason:
		return h.handleStoryReason, nil
	case StageAnalyzeUploads:
		return h.handleAnalyzeUploads, nil
	case StageSceneBreakdown:
		return h.handleSceneBreakdown, nil
	case StageGenerateBatch:
		return h.handleGenerateBatch, nil
	case StagePrepress:
		return h.handlePrepress, nil
	case StageComposeCovers:
		return h.handleComposeCovers, nil
	case StageComposePDF:
		return h.handleComposePDF, nil
	case StagePrintSubmit:
		return h.handlePrintSubmit, nil
	case StagePrintTrack:
		return h.handlePrintTrack, nil
	default:
		return nil, fmt.Errorf("no handler for stage %q", stage)
	}
}

func (h *Handlers) handleBriefExtract(ctx context.Context, story *Story) error {
	if story.Brief != "" {
		return nil
	}

	resp, err := h.registry.CallText(ctx, &providers.GenerationRequest{
		Stage:       providers.StageBriefExtraction,
		Prompt:      fmt.Sprintf(briefExtractionPrompt, story.RawBrief),
		InputFormat: "json",
	})
	if err != nil {
		return fmt.Errorf("brief extraction failed: %w", err)
	}

	brief := providers.ExtractJSONBlock(resp.Output)
	if brief == "" {
		return fmt.Errorf("brief extraction returned no JSON")
	}

	_, err = h.store.Update(story.ID, func(s *Story) error {
		s.Brief = brief
		return nil
	})
	return err
}

func (h *Handlers) handleStoryReason(ctx context.Context, story *Story) error {
	if story.Outline != "" {
		return nil
	}

	resp, err := h.registry.CallText(ctx, &providers.GenerationRequest{
		Stage:  providers.StageStoryOutline,
		Prompt: fmt.Sprintf(storyOutlinePrompt, story.ReadingAge, story.Brief),
	})
	if err != nil {
		return fmt.Errorf("story outline failed: %w", err)
	}
	if strings.TrimSpace(resp.Output) == "" {
		return fmt.Errorf("story outline returned empty output")
	}

	_, err = h.store.Update(story.ID, func(s *Story) error {
		s.Outline = resp.Output
		return nil
	})
	return err
}

func (h *Handlers) handleAnalyzeUploads(ctx context.Context, story *Story) error {
	childDesc := story.ChildDescription
	locationDesc := story.LocationDescription

	for _, ref := range story.UploadRefs {
		var stage providers.Stage
		var prompt string
		switch ref.Kind {
		case "child":
			if childDesc != "" {
				continue
			}
			stage = providers.StageImageAnalysisChild
			prompt = childAnalysisPrompt
		case "location":
			if locationDesc != "" {
				continue
			}
			stage = providers.StageImageAnalysisLocation
			prompt = locationAnalysisPrompt
		default:
			h.logger.Warn("skipping upload with unknown kind", "story", story.ID, "kind", ref.Kind)
			continue
		}

		data, err := os.ReadFile(ref.Path)
		if err != nil {
			return fmt.Errorf("failed to read upload %s: %w", ref.Path, err)
		}

		resp, err := h.registry.AnalyzeImages(ctx, &providers.AnalysisRequest{
			Stage:  stage,
			Prompt: prompt,
			Images: [][]byte{data},
		})
		if err != nil {
			return fmt.Errorf("upload analysis failed for %s: %w", ref.Path, err)
		}

		switch ref.Kind {
		case "child":
			childDesc = resp.Output
		case "location":
			locationDesc = resp.Output
		}
	}

	_, err := h.store.Update(story.ID, func(s *Story) error {
		s.ChildDescription = childDesc
		s.LocationDescription = locationDesc
		return nil
	})
	return err
}

// sceneBreakdown mirrors the JSON contract of the scene breakdown
// stage.
type sceneBreakdown struct {
	Title string `json:"title"`
	Pages []struct {
		Text  string `json:"text"`
		Scene string `json:"scene"`
	} `json:"pages"`
}

func (h *Handlers) handleSceneBreakdown(ctx context.Context, story *Story) error {
	if story.SceneJSON != "" && len(story.Pages) > 0 {
		return nil
	}

	resp, err := h.registry.CallText(ctx, &providers.GenerationRequest{
		Stage:       providers.StageSceneBreakdown,
		Prompt:      fmt.Sprintf(sceneBreakdownPrompt, story.ReadingAge, targetPageCount, story.Outline),
		InputFormat: "json",
	})
	if err != nil {
		return fmt.Errorf("scene breakdown failed: %w", err)
	}

	raw := providers.ExtractJSONBlock(resp.Output)
	if raw == "" {
		return fmt.Errorf("scene breakdown returned no JSON")
	}
	if err := providers.ValidateJSON([]byte(sceneBreakdownSchema), []byte(raw)); err != nil {
		return fmt.Errorf("scene breakdown rejected: %w", err)
	}

	var breakdown sceneBreakdown
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return fmt.Errorf("scene breakdown parse failed: %w", err)
	}

	pages := make([]Page, len(breakdown.Pages))
	for i, p := range breakdown.Pages {
		pages[i] = Page{Index: i, Text: p.Text, ScenePrompt: p.Scene}
	}

	_, err = h.store.Update(story.ID, func(s *Story) error {
		s.SceneJSON = raw
		s.Pages = pages
		if s.Title == "" {
			s.Title = breakdown.Title
		}
		return nil
	})
	return err
}

func (h *Handlers) handleGenerateBatch(ctx context.Context, story *Story) error {
	if len(story.Pages) == 0 {
		return fmt.Errorf("no pages to generate for story %s", story.ID)
	}
	if err := h.homeDir.EnsureStoryDirs(story.ID); err != nil {
		return err
	}

	size := h.prepressOpts.TargetWidth
	var notes []string

	coverPath := h.homeDir.CoverArtworkPath(story.ID)
	if !fileExists(coverPath) {
		prompt := fmt.Sprintf(coverFrontPrompt, story.Outline, story.ChildDescription)
		note, err := h.generateArtwork(ctx, providers.StageCoverFront, prompt, size, coverPath)
		if err != nil {
			return fmt.Errorf("cover generation failed: %w", err)
		}
		if note != "" {
			notes = append(notes, "cover: "+note)
		}
	}

	paths := make([]string, len(story.Pages))
	for i, page := range story.Pages {
		path := h.homeDir.ArtworkPath(story.ID, page.Index)
		paths[i] = path
		if fileExists(path) {
			continue
		}
		prompt := fmt.Sprintf(interiorPagePrompt, page.ScenePrompt, story.ChildDescription, story.LocationDescription)
		note, err := h.generateArtwork(ctx, providers.StageInteriorPage, prompt, size, path)
		if err != nil {
			return fmt.Errorf("page %d generation failed: %w", page.Index, err)
		}
		if note != "" {
			notes = append(notes, fmt.Sprintf("page %d: %s", page.Index, note))
		}
	}

	_, err := h.store.Update(story.ID, func(s *Story) error {
		for i := range s.Pages {
			if i < len(paths) {
				s.Pages[i].ArtworkPath = paths[i]
			}
		}
		s.ReviewNotes = append(s.ReviewNotes, notes...)
		return nil
	})
	return err
}

// generateArtwork renders one image, optionally gates it through the
// vision quality check, and writes it to path. When the quality budget
// runs out the last render is kept anyway and a review note is
// returned; a low-scoring page is worth an operator's look, not a
// failed book.
func (h *Handlers) generateArtwork(ctx context.Context, stage providers.Stage, prompt string, size int, path string) (string, error) {
	const generationAttempts = 2

	var lastData []byte
	for attempt := 0; attempt < generationAttempts; attempt++ {
		resp, err := h.registry.GenerateImage(ctx, &providers.ImageRequest{
			Stage:  stage,
			Prompt: prompt,
			Width:  size,
			Height: size,
		})
		if err != nil {
			return "", err
		}

		data, err := h.imageBytes(ctx, resp)
		if err != nil {
			return "", err
		}
		lastData = data

		if h.visionScore {
			ok, err := h.passesVisionScore(ctx, data)
			if err != nil {
				h.logger.Warn("vision score unavailable, accepting artwork", "error", err)
			} else if !ok {
				h.logger.Info("regenerating low-scoring artwork", "stage", stage, "attempt", attempt+1)
				continue
			}
		}

		return "", os.WriteFile(path, data, 0o644)
	}

	if err := os.WriteFile(path, lastData, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s scored below %d after %d attempts", filepath.Base(path), minVisionScore, generationAttempts), nil
}

func (h *Handlers) passesVisionScore(ctx context.Context, data []byte) (bool, error) {
	resp, err := h.registry.AnalyzeImages(ctx, &providers.AnalysisRequest{
		Stage:  providers.StageVisionScore,
		Prompt: visionScorePrompt,
		Images: [][]byte{data},
	})
	if err != nil {
		return false, err
	}
	score, err := strconv.Atoi(strings.TrimSpace(resp.Output))
	if err != nil {
		return false, fmt.Errorf("unparseable vision score %q", resp.Output)
	}
	return score >= minVisionScore, nil
}

// imageBytes extracts the image payload from a provider response,
// downloading it when only a URL was returned.
func (h *Handlers) imageBytes(ctx context.Context, resp *providers.ImageResponse) ([]byte, error) {
	if resp.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(resp.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image payload: %w", err)
		}
		return data, nil
	}
	if resp.ImageURL == "" {
		return nil, fmt.Errorf("provider %s returned neither image data nor URL", resp.Provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resp.ImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image download request: %w", err)
	}
	res, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed (status %d)", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

func (h *Handlers) handlePrepress(_ context.Context, story *Story) error {
	if err := h.homeDir.EnsureStoryDirs(story.ID); err != nil {
		return err
	}

	type prepressOut struct {
		idx       int
		path      string
		edgeColor string
	}
	var outs []prepressOut

	coverOut := h.homeDir.PrepressCoverPath(story.ID)
	if !fileExists(coverOut) {
		if err := h.prepressOne(h.homeDir.CoverArtworkPath(story.ID), coverOut); err != nil {
			return fmt.Errorf("cover prepress failed: %w", err)
		}
	}

	for _, page := range story.Pages {
		out := h.homeDir.PrepressPath(story.ID, page.Index)
		if fileExists(out) && page.PrepressPath == out {
			continue
		}
		src := page.ArtworkPath
		if src == "" {
			src = h.homeDir.ArtworkPath(story.ID, page.Index)
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("failed to read artwork for page %d: %w", page.Index, err)
		}
		result := prepress.Apply(data, h.prepressOpts)
		if !result.OK {
			return fmt.Errorf("prepress failed for page %d: %s", page.Index, result.Err)
		}
		if !prepress.ValidatePrintDimensions(result.Width, result.Height, h.prepressOpts.TargetWidth, h.prepressOpts.TargetHeight, prepress.DefaultDimensionTolerance) {
			return fmt.Errorf("prepress output for page %d is %dx%d, want %dx%d",
				page.Index, result.Width, result.Height, h.prepressOpts.TargetWidth, h.prepressOpts.TargetHeight)
		}
		if err := os.WriteFile(out, result.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write prepress page %d: %w", page.Index, err)
		}
		outs = append(outs, prepressOut{idx: page.Index, path: out, edgeColor: result.EdgeColor})
	}

	_, err := h.store.Update(story.ID, func(s *Story) error {
		for _, out := range outs {
			for i := range s.Pages {
				if s.Pages[i].Index == out.idx {
					s.Pages[i].PrepressPath = out.path
					s.Pages[i].EdgeColor = out.edgeColor
				}
			}
		}
		return nil
	})
	return err
}

func (h *Handlers) prepressOne(srcPath, outPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", srcPath, err)
	}
	result := prepress.Apply(data, h.prepressOpts)
	if !result.OK {
		return errors.New(result.Err)
	}
	return os.WriteFile(outPath, result.Image, 0o644)
}

func (h *Handlers) handleComposeCovers(_ context.Context, story *Story) error {
	out := h.homeDir.ComposedCoverPath(story.ID)
	if fileExists(out) && story.CoverPath == out {
		return nil
	}

	base, err := os.ReadFile(h.homeDir.PrepressCoverPath(story.ID))
	if err != nil {
		return fmt.Errorf("failed to read press-ready cover: %w", err)
	}

	pos := compose.PositionBottom
	result := compose.ComposePage(compose.Options{
		BaseImage:   base,
		OverlayPath: h.overlayAsset(story.ReadingAge, pos),
		Text:        story.Title,
		Position:    pos,
		TextConfig:  h.textConfig,
	})
	if !result.OK {
		return fmt.Errorf("cover composition failed: %s", result.Err)
	}
	if err := os.WriteFile(out, result.Image, 0o644); err != nil {
		return fmt.Errorf("failed to write composed cover: %w", err)
	}

	_, err = h.store.Update(story.ID, func(s *Story) error {
		s.CoverPath = out
		return nil
	})
	return err
}

func (h *Handlers) handleComposePDF(ctx context.Context, story *Story) error {
	if err := h.homeDir.EnsureStoryDirs(story.ID); err != nil {
		return err
	}

	type composedOut struct {
		idx      int
		path     string
		position string
	}
	var outs []composedOut

	pagePaths := []string{story.CoverPath}
	for _, page := range story.Pages {
		out := h.homeDir.ComposedPath(story.ID, page.Index)
		if fileExists(out) && page.ComposedPath == out {
			pagePaths = append(pagePaths, out)
			continue
		}

		base, err := os.ReadFile(page.PrepressPath)
		if err != nil {
			return fmt.Errorf("failed to read press-ready page %d: %w", page.Index, err)
		}

		pos := h.pagePosition(ctx, base, page)
		result := compose.ComposePage(compose.Options{
			BaseImage:   base,
			OverlayPath: h.overlayAsset(story.ReadingAge, pos),
			Text:        page.Text,
			Position:    pos,
			TextConfig:  h.textConfig,
		})
		if !result.OK {
			return fmt.Errorf("composition failed for page %d: %s", page.Index, result.Err)
		}
		if err := os.WriteFile(out, result.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write composed page %d: %w", page.Index, err)
		}
		outs = append(outs, composedOut{idx: page.Index, path: out, position: string(pos)})
		pagePaths = append(pagePaths, out)
	}

	pdfPath := h.homeDir.PDFPath(story.ID)
	result := pdf.Assemble(pdf.Options{
		PagePaths:  pagePaths,
		OutputPath: pdfPath,
		Title:      story.Title,
		ICCProfile: h.iccProfile,
	})
	if !result.OK {
		return fmt.Errorf("pdf assembly failed: %s", result.Err)
	}

	_, err := h.store.Update(story.ID, func(s *Story) error {
		for _, out := range outs {
			for i := range s.Pages {
				if s.Pages[i].Index == out.idx {
					s.Pages[i].ComposedPath = out.path
					s.Pages[i].Position = out.position
				}
			}
		}
		s.PDFPath = pdfPath
		return nil
	})
	return err
}

// pagePosition resolves the overlay anchor for a page. When a vision
// provider is routed for overlay placement its suggestion wins;
// anything else falls back to the deterministic heuristic.
func (h *Handlers) pagePosition(ctx context.Context, base []byte, page Page) compose.Position {
	fallback := compose.OptimalPosition(len(page.Text), page.Index)
	if !h.visionPlacement {
		return fallback
	}
	if len(page.Text) > compose.MaxTextThreshold {
		// Long text always needs the tall band; placement advice from
		// the model only applies to the standard band.
		return fallback
	}

	resp, err := h.registry.AnalyzeImages(ctx, &providers.AnalysisRequest{
		Stage:  providers.StageOverlayPosition,
		Prompt: overlayPositionPrompt,
		Images: [][]byte{base},
	})
	if err != nil {
		return fallback
	}
	suggested := compose.Position(strings.TrimSpace(resp.Output))
	if _, err := compose.Coordinates(suggested); err != nil || suggested.IsMax() {
		return fallback
	}
	return suggested
}

func (h *Handlers) overlayAsset(readingAge int, pos compose.Position) string {
	return h.homeDir.OverlayAssetPath(readingAge, string(pos), pos.IsMax())
}

func (h *Handlers) handlePrintSubmit(ctx context.Context, story *Story) error {
	if story.PrintJobID != "" {
		return nil
	}
	if story.PDFPath == "" {
		return fmt.Errorf("story %s has no assembled PDF", story.ID)
	}

	pageCount := compose.EnsureEvenPageCount(len(story.Pages) + 1)
	jobID, err := h.print.Submit(ctx, PrintSubmission{
		StoryID:    story.ID,
		Title:      story.Title,
		PDFPath:    story.PDFPath,
		PageCount:  pageCount,
		ICCProfile: h.iccProfile,
	})
	if err != nil {
		return fmt.Errorf("print submission failed: %w", err)
	}

	_, err = h.store.Update(story.ID, func(s *Story) error {
		s.PrintJobID = jobID
		return nil
	})
	return err
}

func (h *Handlers) handlePrintTrack(ctx context.Context, story *Story) error {
	if story.PrintJobID == "" {
		return fmt.Errorf("story %s has no print job to track", story.ID)
	}

	status, err := h.print.Status(ctx, story.PrintJobID)
	if err != nil {
		return fmt.Errorf("print status poll failed: %w", err)
	}

	switch status.State {
	case PrintStateShipped:
		return nil
	case PrintStateRejected:
		return fmt.Errorf("print job %s rejected: %s", story.PrintJobID, status.Message)
	default:
		return fmt.Errorf("%w: job %s is %s", ErrPrintPending, story.PrintJobID, status.State)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
