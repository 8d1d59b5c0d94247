package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-delivery-messaging/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHTTPError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("message x: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("dup: %w", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("session: %w", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("missing id: %w", domain.ErrBadRequest), http.StatusBadRequest},
		{errors.New("dynamo exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, tc.err)
		assert.Equal(t, tc.code, rr.Code, tc.err.Error())
	}
}

func TestHTTPError_InternalTextNotLeaked(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("dynamo exploded"))
	assert.NotContains(t, rr.Body.String(), "dynamo")
}
