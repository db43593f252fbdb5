package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adhamcharaf/Optiflow-VF/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// respondError maps the domain sentinels to a status code
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConfirmationRequired):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// optionalFloat returns nil for an empty value
func optionalFloat(c *gin.Context, name string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func optionalInt64(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(value))
}

// dateRangeBody is embedded by requests that work over a period
type dateRangeBody struct {
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    string  `json:"end_date" binding:"required"`
	ProductIDs []int64 `json:"product_ids"`
}

func (b dateRangeBody) dateRange() (domain.DateRange, error) {
	start, err := parseDate(b.StartDate)
	if err != nil {
		return domain.DateRange{}, errors.Wrapf(domain.ErrInvalidRange, "start_date %q", b.StartDate)
	}
	end, err := parseDate(b.EndDate)
	if err != nil {
		return domain.DateRange{}, errors.Wrapf(domain.ErrInvalidRange, "end_date %q", b.EndDate)
	}
	if end.Before(start) {
		return domain.DateRange{}, errors.Wrap(domain.ErrInvalidRange, "end_date before start_date")
	}
	return domain.DateRange{Start: start, End: end}, nil
}

// queryRange reads start_date and end_date, both optional
func queryRange(c *gin.Context) (domain.DateRange, bool) {
	var r domain.DateRange
	for name, dst := range map[string]*time.Time{"start_date": &r.Start, "end_date": &r.End} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			badRequest(c, "invalid "+name)
			return r, false
		}
		*dst = t
	}
	return r, true
}

// parseProductIDs reads a comma separated product_ids query value
func parseProductIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrInvalidRange, "product id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
