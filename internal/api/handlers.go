package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/codeclash/similitude/internal/cache"
	"github.com/codeclash/similitude/internal/config"
	"github.com/codeclash/similitude/internal/models"
	"github.com/codeclash/similitude/internal/repository"
	"github.com/codeclash/similitude/internal/similarity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler holds the handler dependencies. comparisons and reportCache are
// nil when Mongo/Redis are not configured; the compare path works without
// them.
type Handler struct {
	cfg            *config.Config
	engine         *similarity.Engine
	workerPool     *similarity.WorkerPool
	comparisons    *repository.ComparisonsRepository
	reportCache    *cache.ReportCache
	compareSem     chan struct{}
	compareTimeout time.Duration
}

func NewHandler(
	cfg *config.Config,
	engine *similarity.Engine,
	workerPool *similarity.WorkerPool,
	comparisons *repository.ComparisonsRepository,
	reportCache *cache.ReportCache,
) *Handler {
	return &Handler{
		cfg:            cfg,
		engine:         engine,
		workerPool:     workerPool,
		comparisons:    comparisons,
		reportCache:    reportCache,
		compareSem:     make(chan struct{}, cfg.MaxConcurrentCompare),
		compareTimeout: cfg.CompareTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Compare is the synchronous call contract: two named blobs in, one report
// out.
func (h *Handler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.NameA == "" {
		req.NameA = "Document A"
	}
	if req.NameB == "" {
		req.NameB = "Document B"
	}

	ctx := c.Request.Context()
	digest := cache.PairDigest(req.SourceA, req.SourceB)

	if h.reportCache != nil {
		cached, err := h.reportCache.Get(ctx, digest)
		if err != nil {
			log.Warn().Err(err).Msg("Report cache lookup failed")
		} else if cached != nil {
			cached.NameA, cached.NameB = req.NameA, req.NameB
			c.JSON(http.StatusOK, models.CompareResponse{
				Cached: true,
				Report: cached,
			})
			return
		}
	}

	select {
	case h.compareSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}
	defer func() { <-h.compareSem }()

	report, err := h.runComparison(ctx, req)
	if err != nil {
		if errors.Is(err, similarity.ErrInvalidEncoding) {
			c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_ENCODING",
			})
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
				Error: "Comparison timed out",
				Code:  "REQUEST_TIMEOUT",
			})
			return
		}
		log.Error().Err(err).Msg("Comparison failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Comparison failed",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	comparisonID := uuid.New().String()
	h.archive(comparisonID, digest, report)

	c.JSON(http.StatusOK, models.CompareResponse{
		ComparisonID: comparisonID,
		Report:       report,
	})
}

// runComparison executes one comparison on the worker pool and waits for
// its outcome.
func (h *Handler) runComparison(ctx context.Context, req models.CompareRequest) (*similarity.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, h.compareTimeout)
	defer cancel()

	resultChan := make(chan *similarity.Report, 1)
	errChan := make(chan error, 1)

	job := &similarity.CompareJob{
		Engine: h.engine,
		A:      similarity.Submission{Name: req.NameA, Source: req.SourceA},
		B:      similarity.Submission{Name: req.NameB, Source: req.SourceB},
		Result: resultChan,
		Err:    errChan,
	}
	if err := h.workerPool.Submit(job); err != nil {
		return nil, err
	}

	select {
	case report := <-resultChan:
		return report, nil
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// archive persists and caches a finished report off the request path.
func (h *Handler) archive(comparisonID, digest string, report *similarity.Report) {
	if h.comparisons == nil && h.reportCache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if h.comparisons != nil {
			record := &models.ComparisonRecord{
				ComparisonID: comparisonID,
				Digest:       digest,
				Report:       report,
			}
			if err := h.comparisons.InsertComparison(ctx, record); err != nil {
				log.Error().Err(err).Str("comparisonId", comparisonID).Msg("Failed to archive comparison")
			}
		}
		if h.reportCache != nil {
			if err := h.reportCache.Put(ctx, digest, report); err != nil {
				log.Warn().Err(err).Msg("Failed to cache report")
			}
		}
	}()
}

// GetComparison returns one archived comparison by its identifier.
func (h *Handler) GetComparison(c *gin.Context) {
	if h.comparisons == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Comparison archive is not configured",
			Code:  "ARCHIVE_DISABLED",
		})
		return
	}

	record, err := h.comparisons.GetComparisonByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Error().Err(err).Str("comparisonId", c.Param("id")).Msg("Failed to load comparison")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load comparison",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Comparison not found",
			Code:  "NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListComparisons returns the newest archived comparisons.
func (h *Handler) ListComparisons(c *gin.Context) {
	if h.comparisons == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Comparison archive is not configured",
			Code:  "ARCHIVE_DISABLED",
		})
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	records, err := h.comparisons.ListRecentComparisons(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list comparisons")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to list comparisons",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"comparisons": records})
}
