package validate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Date string `json:"date" validate:"required,isodate"`
	Kind string `json:"kind" validate:"required,oneof=online offline"`
}

func TestStruct_ReportsFieldsByJSONName(t *testing.T) {
	err := Struct(sample{Date: "01/02/2025", Kind: "video"})
	require.Error(t, err)

	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must be a date in YYYY-MM-DD format", ve.Fields["date"])
	assert.Equal(t, "must be one of online offline", ve.Fields["kind"])
	assert.True(t, IsValidation(err))
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Date: "2025-01-01", Kind: "online"}))
}

func TestError_MessageIsStable(t *testing.T) {
	err := &Error{Fields: map[string]string{"b": "is required", "a": "is required"}}
	assert.Equal(t, "validation failed: a: is required; b: is required", err.Error())
}

func TestHTTPError(t *testing.T) {
	he, ok := HTTPError(Field("timeSlot", "is required"))
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	body, _ := he.Message.(map[string]interface{})
	assert.Equal(t, map[string]string{"timeSlot": "is required"}, body["fields"])

	_, ok = HTTPError(errors.New("boom"))
	assert.False(t, ok)
}
