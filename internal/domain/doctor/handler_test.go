package doctor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook/internal/platform/auth"
)

func TestHandler_ListPaginates(t *testing.T) {
	h := NewHandler(newTestService(nil))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/doctors?limit=2&page=2", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.List(e.NewContext(req, rec)))

	var body struct {
		Data  []Doctor `json:"data"`
		Total int      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 6, body.Total)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "doc-3", body.Data[0].ID)
}

func TestHandler_GetNotFound(t *testing.T) {
	h := NewHandler(newTestService(nil))
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nobody")

	err := h.Get(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestHandler_StatsOnlyForOwnDoctor(t *testing.T) {
	h := NewHandler(newTestService(fixedAppointments{}))
	e := echo.New()

	call := func(doctorID string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), "u", []string{auth.RoleDoctor}, doctorID))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("doc-1")
		return rec, auth.RequireDoctorSelf("id")(h.Stats)(c)
	}

	rec, err := call("doc-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = call("doc-2")
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
}
