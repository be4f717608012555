package audioerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	cause := errors.New("bad header")
	err := fmt.Errorf("upload: %w", NewDecodeError("cannot read wav", cause))

	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmptyAudio)
	assert.Equal(t, CodeDecode, CodeOf(err))
	assert.Equal(t, "upload: cannot read wav: bad header", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

func TestConstructors(t *testing.T) {
	assert.ErrorIs(t, NewEmptyAudioError("nothing"), ErrEmptyAudio)
	assert.ErrorIs(t, NewAnalysisError("stft", nil), ErrAnalysis)
	assert.ErrorIs(t, NewPayloadError("no file", nil), ErrPayload)
	assert.Equal(t, "nothing", NewEmptyAudioError("nothing").Error())
}
