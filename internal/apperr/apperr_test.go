package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("content", "must not be empty"), http.StatusBadRequest},
		{"not found", NotFound("message", "m1"), http.StatusNotFound},
		{"authorization", Unauthorized("not a member"), http.StatusForbidden},
		{"transport", &TransportUnavailable{Room: "r"}, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestStatusSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", NotFound("message", "m1"))
	assert.Equal(t, http.StatusNotFound, Status(err))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid emoji: must not be empty", Validation("emoji", "must not be empty").Error())
	assert.Equal(t, "message m1 not found", NotFound("message", "m1").Error())
	assert.Equal(t, "workspace not found", NotFound("workspace", "").Error())
}
