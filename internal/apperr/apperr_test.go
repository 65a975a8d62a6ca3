package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
)

var errThingNotFound = apperr.New(apperr.NotFound, "thing not found")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
		msg  string
	}{
		{name: "sentinel", err: errThingNotFound, want: apperr.NotFound, msg: "thing not found"},
		{name: "wrapped_sentinel", err: fmt.Errorf("service: %w", errThingNotFound), want: apperr.NotFound, msg: "thing not found"},
		{name: "wrap", err: apperr.Wrap(apperr.Upstream, "rate lookup failed", errors.New("boom")), want: apperr.Upstream, msg: "rate lookup failed"},
		{name: "plain", err: errors.New("connection reset"), want: apperr.Internal, msg: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
			assert.Equal(t, tt.msg, apperr.Message(tt.err))
		})
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := apperr.Wrap(apperr.Conflict, "duplicate", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "duplicate: boom", err.Error())
	assert.True(t, errors.Is(fmt.Errorf("x: %w", errThingNotFound), errThingNotFound))
}
