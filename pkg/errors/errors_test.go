package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonedErrorsMatchByCode(t *testing.T) {
	cloned := Clone(ErrSlotFull, "slot 5:00 - 6:00 AM is full")
	assert.True(t, errors.Is(cloned, ErrSlotFull))
	assert.False(t, errors.Is(cloned, ErrSlotBlocked))
	assert.Equal(t, "this slot is fully booked", ErrSlotFull.Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestIsAdmissionFailure(t *testing.T) {
	for _, err := range []error{ErrSlotNotFound, ErrSlotBlocked, ErrSlotFull, ErrDuplicateDayBooking, ErrDuplicateSlotBooking} {
		assert.True(t, IsAdmissionFailure(err), err.Error())
		assert.True(t, IsAdmissionFailure(fmt.Errorf("admit: %w", err)), err.Error())
	}
	assert.False(t, IsAdmissionFailure(ErrValidation))
	assert.False(t, IsAdmissionFailure(Upstream(sql.ErrConnDone, "")))
	assert.False(t, IsAdmissionFailure(nil))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))
	assert.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := FromError(fmt.Errorf("context: %w", ErrConflict))
	assert.Equal(t, "CONFLICT", wrapped.Code)

	generic := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, generic.Code)
	assert.Equal(t, http.StatusInternalServerError, generic.Status)
	assert.EqualError(t, errors.Unwrap(generic), "boom")
}

func TestUpstream(t *testing.T) {
	err := Upstream(sql.ErrConnDone, "")
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.Equal(t, ErrUpstreamUnavailable.Message, err.Message)
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.Contains(t, err.Error(), sql.ErrConnDone.Error())

	custom := Upstream(sql.ErrConnDone, "failed to admit booking")
	assert.Equal(t, "failed to admit booking", custom.Message)
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())
	assert.Nil(t, e.Unwrap())
}
