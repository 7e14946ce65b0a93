package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(KindConfig, "setup", errors.New("horizon must be positive"))
	assert.Equal(t, "setup: ConfigError: horizon must be positive", err.Error())
	assert.Equal(t, "ConfigError", ErrConfig.Error())
}

func TestErrorsIsByKind(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", Errorf(KindDataLoad, "load", "open: %w", io.ErrUnexpectedEOF))

	assert.ErrorIs(t, err, ErrDataLoad)
	assert.NotErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, &Error{Kind: KindDataLoad, Stage: "load"})
	assert.NotErrorIs(t, err, &Error{Kind: KindDataLoad, Stage: "export"})
}

func TestKindAndStageOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(KindSequence, "finalize", nil))
	assert.Equal(t, KindSequence, KindOf(err))
	assert.Equal(t, "finalize", StageOf(err))
	assert.Equal(t, Kind(""), KindOf(io.EOF))
	assert.Equal(t, "", StageOf(io.EOF))
}
