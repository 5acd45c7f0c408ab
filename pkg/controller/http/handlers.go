package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/schedops/ediscope/pkg/domain/interfaces"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/service/edi"
	"github.com/schedops/ediscope/pkg/service/sheet"
	"github.com/schedops/ediscope/pkg/utils/apperr"
)

const (
	maxUploadBytes = 64 << 20
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler serves the report generation endpoints. Sheet readers and
// writers are built per request because form fields may override parts of
// the policy.
type ReportHandler struct {
	policy     model.Policy
	classifier interfaces.Classifier
	aggregator interfaces.Aggregator
	selector   interfaces.Selector
	converter  *edi.Converter
}

// NewReportHandler creates a handler backed by the given use cases
func NewReportHandler(policy model.Policy, classifier interfaces.Classifier, aggregator interfaces.Aggregator, selector interfaces.Selector) *ReportHandler {
	return &ReportHandler{
		policy:     policy,
		classifier: classifier,
		aggregator: aggregator,
		selector:   selector,
		converter:  edi.NewConverter(),
	}
}

// HandleCoverage annotates an uploaded schedule workbook with coverage
// classification and returns it as a download
func (h *ReportHandler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scratch, err := newScratchDir()
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer scratch.Close(ctx)

	srcPath, err := scratch.SaveUpload(r, "schedule_file", ".xlsx", ".xlsm")
	if err != nil {
		handleError(w, r, err)
		return
	}

	policy := h.policy
	if v := r.FormValue("sheet_name"); v != "" {
		policy.SheetName = v
	}
	if v := r.FormValue("part_header"); v != "" {
		policy.PartHeader = v
	}

	sched, err := sheet.NewReader(policy).ReadSchedule(ctx, srcPath)
	if err != nil {
		handleError(w, r, err)
		return
	}
	snap, err := h.classifier.Classify(ctx, sched)
	if err != nil {
		handleError(w, r, err)
		return
	}

	dstPath := scratch.Path("coverage.xlsx")
	if err := sheet.NewWriter(policy).WriteCoverage(ctx, srcPath, dstPath, snap); err != nil {
		handleError(w, r, err)
		return
	}
	serveWorkbook(w, r, dstPath, "Coverage_Report.xlsx")
}

// HandleCritical returns the critical parts workbook for an uploaded schedule
func (h *ReportHandler) HandleCritical(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scratch, err := newScratchDir()
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer scratch.Close(ctx)

	srcPath, err := scratch.SaveUpload(r, "schedule_file", ".xlsx", ".xlsm")
	if err != nil {
		handleError(w, r, err)
		return
	}

	windowWeeks := h.policy.WindowWeeks
	if v := r.FormValue("window_weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, goerr.Wrap(model.ErrBadConfig, "invalid window_weeks", goerr.V("value", v)), http.StatusBadRequest)
			return
		}
		windowWeeks = n
	}

	sched, err := sheet.NewReader(h.policy).ReadSchedule(ctx, srcPath)
	if err != nil {
		handleError(w, r, err)
		return
	}
	snap, err := h.classifier.Classify(ctx, sched)
	if err != nil {
		handleError(w, r, err)
		return
	}
	critical, err := h.selector.Select(ctx, snap, windowWeeks)
	if err != nil {
		handleError(w, r, err)
		return
	}

	dstPath := scratch.Path("critical.xlsx")
	if err := sheet.NewWriter(h.policy).WriteCritical(ctx, dstPath, critical); err != nil {
		handleError(w, r, err)
		return
	}
	serveWorkbook(w, r, dstPath, "Critical_Parts_Report.xlsx")
}

// HandleFluctuations diffs a sequence of uploaded EDI HTML exports and
// returns the fluctuation workbook. Files are treated oldest first, in
// upload order.
func (h *ReportHandler) HandleFluctuations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, goerr.Wrap(err, "failed to parse multipart form"), http.StatusBadRequest)
		return
	}
	uploads := r.MultipartForm.File["edi_files"]
	if len(uploads) < 2 {
		writeError(w, goerr.Wrap(model.ErrBadConfig, "at least two EDI files are required",
			goerr.V("count", len(uploads))), http.StatusBadRequest)
		return
	}

	scratch, err := newScratchDir()
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer scratch.Close(ctx)

	var snaps []*model.Snapshot
	for _, fh := range uploads {
		snap, err := h.snapshotFromEDI(r, fh, now)
		if err != nil {
			handleError(w, r, goerr.Wrap(err, "failed to read EDI export", goerr.V("file", fh.Filename)))
			return
		}
		snaps = append(snaps, snap)
	}
	for i := 1; i < len(snaps); i++ {
		h.classifier.AnnotateChanges(snaps[i-1], snaps[i])
	}

	entries, err := h.aggregator.Aggregate(ctx, snaps)
	if err != nil {
		handleError(w, r, err)
		return
	}
	shifts, months, err := h.aggregator.DemandShifts(ctx, snaps, now)
	if err != nil {
		handleError(w, r, err)
		return
	}

	dstPath := scratch.Path("fluctuation.xlsx")
	if err := sheet.NewWriter(h.policy).WriteFluctuation(ctx, dstPath, shifts, entries, months, len(snaps)); err != nil {
		handleError(w, r, err)
		return
	}
	serveWorkbook(w, r, dstPath, "EDI_Fluctuation_Report.xlsx")
}

// HandleConvert merges uploaded EDI HTML exports into a single weekly
// demand workbook
func (h *ReportHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, goerr.Wrap(err, "failed to parse multipart form"), http.StatusBadRequest)
		return
	}
	uploads := r.MultipartForm.File["html_files"]
	if len(uploads) == 0 {
		writeError(w, goerr.Wrap(model.ErrBadConfig, "no HTML files uploaded"), http.StatusBadRequest)
		return
	}

	scratch, err := newScratchDir()
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer scratch.Close(ctx)

	var forecasts []model.ForecastRow
	for _, fh := range uploads {
		rows, err := h.parseEDI(r, fh, now)
		if err != nil {
			// A single unreadable export should not sink the whole batch
			ctxlog.From(ctx).Warn("Skipping unreadable EDI export",
				"file", fh.Filename, "error", err)
			continue
		}
		forecasts = append(forecasts, rows...)
	}
	if len(forecasts) == 0 {
		writeError(w, goerr.Wrap(model.ErrParse, "no forecast rows found in uploads"), http.StatusBadRequest)
		return
	}

	dstPath := scratch.Path("merged.xlsx")
	if err := sheet.NewWriter(h.policy).WriteMerged(ctx, dstPath, forecasts, h.converter.Weeks(now)); err != nil {
		handleError(w, r, err)
		return
	}
	serveWorkbook(w, r, dstPath, "EDI_Schedule.xlsx")
}

func (h *ReportHandler) parseEDI(r *http.Request, fh *multipart.FileHeader, now time.Time) ([]model.ForecastRow, error) {
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".html" && ext != ".htm" {
		return nil, goerr.Wrap(model.ErrParse, "unsupported file type", goerr.V("ext", ext))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open upload")
	}
	defer f.Close()
	return h.converter.Parse(r.Context(), f, now)
}

func (h *ReportHandler) snapshotFromEDI(r *http.Request, fh *multipart.FileHeader, now time.Time) (*model.Snapshot, error) {
	rows, err := h.parseEDI(r, fh, now)
	if err != nil {
		return nil, err
	}
	snap, err := h.classifier.Classify(r.Context(), model.ScheduleFromForecasts(rows))
	if err != nil {
		return nil, err
	}
	snap.Label = fh.Filename
	snap.TakenAt = now
	return snap, nil
}

// scratchDir is a per-request working directory, removed when the
// request finishes
type scratchDir struct {
	dir string
}

func newScratchDir() (*scratchDir, error) {
	dir := filepath.Join(os.TempDir(), "ediscope-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create scratch directory")
	}
	return &scratchDir{dir: dir}, nil
}

func (s *scratchDir) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *scratchDir) Close(ctx context.Context) {
	if err := os.RemoveAll(s.dir); err != nil {
		ctxlog.From(ctx).Warn("Failed to remove scratch directory",
			"dir", s.dir, "error", err)
	}
}

// SaveUpload copies a single uploaded file into the scratch directory
// after checking its extension
func (s *scratchDir) SaveUpload(r *http.Request, field string, allowedExts ...string) (string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", goerr.Wrap(model.ErrParse, "failed to parse multipart form", goerr.V("cause", err.Error()))
	}
	src, fh, err := r.FormFile(field)
	if err != nil {
		return "", goerr.Wrap(model.ErrBadConfig, "missing upload field", goerr.V("field", field))
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	allowed := false
	for _, a := range allowedExts {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", goerr.Wrap(model.ErrParse, "unsupported file type",
			goerr.V("ext", ext), goerr.V("allowed", allowedExts))
	}

	path := s.Path("upload" + ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create upload file")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", goerr.Wrap(err, "failed to save upload")
	}
	return path, nil
}

func serveWorkbook(w http.ResponseWriter, r *http.Request, path, downloadName string) {
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	http.ServeFile(w, r, path)
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	apperr.Handle(r.Context(), err)
	writeError(w, err, apperr.HTTPStatus(err))
}
