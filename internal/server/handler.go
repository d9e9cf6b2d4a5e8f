package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"yashubustudio/recommender/recommender"
)

// CartService is the part of recommender.Service the handlers need.
type CartService interface {
	EditorRows() []recommender.EditorRow
	Clear(rows []recommender.EditorRow) []recommender.EditorRow
	Suggest(ctx context.Context, rows []recommender.EditorRow, topK int) (recommender.SuggestResult, error)
}

type CartHandler struct {
	service   CartService
	validator *validator.Validate
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewCartHandler(service CartService, timeout time.Duration, logger zerolog.Logger) *CartHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CartHandler{
		service:   service,
		validator: validator.New(),
		timeout:   timeout,
		logger:    logger,
	}
}

type ResponseError struct {
	Message string `json:"message"`
}

type SuggestRequest struct {
	Rows []recommender.EditorRow `json:"rows"`
	TopK int                     `json:"top_k" validate:"omitempty,min=1,max=10"`
}

type ClearRequest struct {
	Rows []recommender.EditorRow `json:"rows" validate:"required"`
}

type SummaryResponse struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
	Text      string  `json:"text"`
}

type SuggestResponse struct {
	Recommendations []recommender.Recommendation `json:"recommendations"`
	Summary         SummaryResponse              `json:"summary"`
	Sequence        []int                        `json:"sequence"`
}

// GetCart returns the initial editor table, every quantity at zero.
func (h *CartHandler) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.service.EditorRows()))
}

func (h *CartHandler) Suggest(c echo.Context) error {
	var req SuggestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.service.Suggest(ctx, req.Rows, req.TopK)
	if err != nil {
		h.logger.Error().Err(err).Msg("suggest failed")
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return c.JSON(status, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(SuggestResponse{
		Recommendations: res.Recommendations,
		Summary: SummaryResponse{
			ItemCount: res.Summary.ItemCount,
			Subtotal:  res.Summary.Subtotal,
			Text:      res.Summary.Markdown(),
		},
		Sequence: res.Sequence,
	}))
}

func (h *CartHandler) Clear(c echo.Context) error {
	var req ClearRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.service.Clear(req.Rows)))
}

// ErrorHandler renders every unhandled error as {"message": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ResponseError{Message: msg})
}
