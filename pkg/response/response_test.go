package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EmilynnJ/ccodeseer/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performOK(data interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, data)
	return w
}

func performFail(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, err)
	return w
}

func TestOKWritesSuccessEnvelope(t *testing.T) {
	w := performOK(gin.H{"foo": "bar"})
	assert.Equal(t, http.StatusOK, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
}

func TestFailWithAppErrorUsesItsKindAndTag(t *testing.T) {
	err := apperr.New(apperr.RateLimitExceeded, "slow down").WithTag("payment")
	w := performFail(err)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "payment", body.Error.Code)
	assert.Equal(t, "slow down", body.Error.Message)
}

func TestFailMasksInternalErrorMessage(t *testing.T) {
	err := apperr.Wrap(apperr.Internal, "leaked db connection string", errors.New("dsn=..."))
	w := performFail(err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error.Message)
}

func TestFailOnUntypedErrorDefaultsToInternal(t *testing.T) {
	w := performFail(errors.New("something broke"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body.Error.Code)
	assert.Equal(t, "internal error", body.Error.Message)
}
