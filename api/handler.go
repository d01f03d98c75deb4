// Package api exposes the prediction service over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"carprice/models"
	"carprice/storage"
	"carprice/tabular"
	"carprice/utils"
)

// DefaultMaxUploadBytes bounds request bodies when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// PredictedFilename is the attachment name of /predict_csv responses.
const PredictedFilename = "predicted_prices.csv"

// Predictor is the part of services.PredictionService the handler needs.
type Predictor interface {
	PredictOne(rec models.CarRecord) (float64, error)
	PredictMany(recs []models.CarRecord) ([]float64, error)
	PredictFromTabularInput(table *models.RawTable) (*models.PredictedTable, error)
}

// ItemsRequest is the body of POST /predict_items.
type ItemsRequest struct {
	Items []models.CarRecord `json:"items"`
}

// Handler serves prediction requests.
type Handler struct {
	service   Predictor
	store     storage.PredictionWriter
	metrics   http.Handler
	logger    *utils.Logger
	maxUpload int64
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithStore persists every predicted table to s.
func WithStore(s storage.PredictionWriter) HandlerOption {
	return func(h *Handler) { h.store = s }
}

// WithMetrics mounts m on GET /metrics.
func WithMetrics(m http.Handler) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithMaxUpload limits request bodies to n bytes.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

func NewHandler(service Predictor, logger *utils.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:   service,
		logger:    logger.With("api"),
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the full router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(h.maxUpload))
		r.With(render.SetContentType(render.ContentTypeJSON)).Post("/predict_item", h.PredictItem)
		r.With(render.SetContentType(render.ContentTypeJSON)).Post("/predict_items", h.PredictItems)
		r.Post("/predict_csv", h.PredictCSV)
	})

	return r
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// PredictItem handles POST /predict_item and responds with a bare number.
func (h *Handler) PredictItem(w http.ResponseWriter, r *http.Request) {
	var rec models.CarRecord
	if err := render.DecodeJSON(r.Body, &rec); err != nil {
		h.renderError(w, r, decodeError(err))
		return
	}

	price, err := h.service.PredictOne(rec)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, price)
}

// PredictItems handles POST /predict_items and responds with one number per
// item, in request order.
func (h *Handler) PredictItems(w http.ResponseWriter, r *http.Request) {
	var req ItemsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, decodeError(err))
		return
	}

	prices, err := h.service.PredictMany(req.Items)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, prices)
}

// PredictCSV handles POST /predict_csv. The multipart field "file" carries a
// CSV or XLSX table; the response is the table restricted to predicted rows
// with a predicted_price column.
func (h *Handler) PredictCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.renderError(w, r, decodeError(err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderError(w, r, errBadRequest(fmt.Errorf("form field %q: %w", "file", err)))
		return
	}
	defer file.Close()

	table, err := tabular.Read(header.Filename, file)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	out, err := h.service.PredictFromTabularInput(table)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if h.store != nil {
		batchID, err := h.store.WritePredictions(header.Filename, out)
		if err != nil {
			h.logger.Error("[api] Storing predictions for %s failed: %v", header.Filename, err)
		} else {
			w.Header().Set("X-Batch-ID", batchID)
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", PredictedFilename))
	w.Header().Set("X-Rows-Dropped", strconv.Itoa(len(out.Dropped)))
	if err := storage.NewCSVStreamWriter(w).WriteTable(out); err != nil {
		h.logger.Error("[api] Writing CSV response failed: %v", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := fromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("[api] %s %s: %v", r.Method, r.URL.Path, err)
	}
	_ = render.Render(w, r, apiErr)
}

func decodeError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return errBadRequest(err)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.logger.Info("[api] %s %s %d %dB %v id=%s",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
