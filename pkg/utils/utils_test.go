package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hashRequest struct {
	Query string `json:"query" validate:"required"`
	Mode  string `json:"mode" validate:"omitempty,oneof=parser tokens"`
}

func TestValidate(t *testing.T) {
	_, err := Validate(hashRequest{Query: "up"})
	assert.NoError(t, err)

	_, err = Validate(hashRequest{Mode: "regex"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'hashRequest.Query': rule 'required'")
	assert.Contains(t, err.Error(), "rule 'oneof' expected 'parser tokens', got 'regex'")
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("grpc", "oneof=grpc http"))
	assert.Error(t, ValidateValue("udp", "oneof=grpc http"))
}

func TestBindRequest(t *testing.T) {
	e := echo.New()

	bind := func(body string) (hashRequest, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return BindRequest[hashRequest](e.NewContext(req, httptest.NewRecorder()))
	}

	t.Run("valid", func(t *testing.T) {
		v, err := bind(`{"query":"up == 0","mode":"tokens"}`)
		require.NoError(t, err)
		assert.Equal(t, "up == 0", v.Query)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := bind(`{"query":`)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("failed validation", func(t *testing.T) {
		_, err := bind(`{}`)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}
