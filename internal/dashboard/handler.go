package dashboard

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	uploadField     = "file"
	defaultFileName = "upload.csv"
)

var (
	ErrNotCSV           = errors.New("only .csv files are accepted")
	ErrMissingUpload    = errors.New("no file was uploaded")
	ErrUploadTooLarge   = errors.New("uploaded file is too large")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrEmptyUploadedCSV = errors.New("uploaded file is empty")
)

// RowsResponse is the filtered view of a dataset.
type RowsResponse struct {
	Dataset Summary      `json:"dataset"`
	Columns []string     `json:"columns"`
	Rows    [][]string   `json:"rows"`
	Total   int          `json:"total"`
	Matched int          `json:"matched"`
	Filters []FilterView `json:"filters"`
}

// ErrorResponse is written for every failed api call.
type ErrorResponse struct {
	Error string `json:"error"`
}

type indexPage struct {
	Datasets []Summary
	Error    string
}

type datasetPage struct {
	Rows RowsResponse
}

// Handler serves the html pages and the json api.
type Handler struct {
	store          Store
	maxUploadBytes int64
}

// NewHandler returns a handler over store.
func NewHandler(store Store, maxUploadBytes int64) *Handler {
	return &Handler{
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, "")
}

// Upload accepts a multipart form upload and redirects to the dataset page.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Warn().Err(err).Msg("failed to parse upload form")
		if isTooLarge(err) {
			h.renderIndex(w, r, http.StatusRequestEntityTooLarge, ErrUploadTooLarge.Error())
			return
		}
		h.renderIndex(w, r, http.StatusBadRequest, ErrMissingUpload.Error())
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.renderIndex(w, r, http.StatusBadRequest, ErrMissingUpload.Error())
		return
	}
	defer file.Close()

	if !isCSVName(header.Filename) {
		h.renderIndex(w, r, http.StatusBadRequest, ErrNotCSV.Error())
		return
	}
	dataset, err := h.load(header.Filename, file)
	if err != nil {
		logger.Warn().Err(err).Str("file", header.Filename).Msg("failed to load upload")
		h.renderIndex(w, r, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info().
		Str("dataset", dataset.Id).
		Str("file", dataset.Name).
		Int("rows", len(dataset.Table.Rows)).
		Msg("dataset uploaded")
	http.Redirect(w, r, "/datasets/"+dataset.Id, http.StatusSeeOther)
}

// View renders the filtered table of one dataset.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	dataset, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		h.renderIndex(w, r, http.StatusNotFound, ErrDatasetNotFound.Error())
		return
	}
	page := datasetPage{Rows: filterDataset(dataset, r)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "dataset.html", page); err != nil {
		logger.Error().Err(err).Str("dataset", dataset.Id).Msg("failed to render dataset page")
	}
}

func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, summaries(h.store.List()))
}

// CreateDataset accepts a raw csv request body.  The name query parameter names the dataset.
func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = defaultFileName
	}
	if !isCSVName(name) {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: ErrNotCSV.Error()})
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	dataset, err := h.load(name, body)
	if err != nil {
		status := http.StatusBadRequest
		if isTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
			err = ErrUploadTooLarge
		}
		writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, r, http.StatusCreated, dataset.Summary())
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: ErrDatasetNotFound.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, dataset.Summary())
}

// GetRows returns the rows that pass the filters given as repeated query parameters.
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	dataset, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: ErrDatasetNotFound.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, filterDataset(dataset, r))
}

func (h *Handler) load(name string, body io.Reader) (Dataset, error) {
	table, err := ParseCSV(body)
	if errors.Is(err, ErrNoHeader) {
		return Dataset{}, ErrEmptyUploadedCSV
	}
	if err != nil {
		return Dataset{}, err
	}
	return h.store.Put(path.Base(name), table), nil
}

func (h *Handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, message string) {
	page := indexPage{
		Datasets: summaries(h.store.List()),
		Error:    message,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "index.html", page); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render index page")
	}
}

func filterDataset(dataset Dataset, r *http.Request) RowsResponse {
	query := r.URL.Query()
	selections := make(map[string][]string, len(DefaultFilters))
	for _, def := range DefaultFilters {
		selections[def.Key] = query[def.Key]
	}
	filtered, views := ApplyFilters(dataset.Table, DefaultFilters, selections)
	return RowsResponse{
		Dataset: dataset.Summary(),
		Columns: filtered.Columns,
		Rows:    filtered.Rows,
		Total:   len(dataset.Table.Rows),
		Matched: len(filtered.Rows),
		Filters: views,
	}
}

func summaries(datasets []Dataset) []Summary {
	out := make([]Summary, 0, len(datasets))
	for _, dataset := range datasets {
		out = append(out, dataset.Summary())
	}
	return out
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func isCSVName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
