package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Limit    int     `query:"limit" default:"50" validate:"gte=1,lte=1000"`
	MinAbsR  float64 `query:"min_abs_r" validate:"gte=0,lte=1"`
	Category string  `query:"category" validate:"omitempty,oneof=funny financial other"`
}

func bindQuery(t *testing.T, query string) (*listQuery, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	q := &listQuery{}
	return q, ReadAndValidateRequest(c, q)
}

func TestReadAndValidateRequest_Defaults(t *testing.T) {
	q, verr := bindQuery(t, "min_abs_r=0.4")
	require.Nil(t, verr)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, 0.4, q.MinAbsR)
}

func TestReadAndValidateRequest_ReportsQueryNames(t *testing.T) {
	_, verr := bindQuery(t, "min_abs_r=2&category=boring")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	assert.Equal(t, "min_abs_r", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "min_abs_r must be at most 1", errs[0].Message)

	assert.Equal(t, "category", errs[1].Field)
	assert.Equal(t, []string{"funny", "financial", "other"}, errs[1].Params["options"])
}

func TestReadAndValidateRequest_BindFailure(t *testing.T) {
	_, verr := bindQuery(t, "limit=abc")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
