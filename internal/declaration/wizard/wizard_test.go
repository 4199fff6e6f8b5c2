package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsCoverTableInOrder(t *testing.T) {
	steps := Steps()
	require.Len(t, steps, 7)
	assert.Equal(t, Initial(), steps[0])
	assert.Equal(t, Terminal(), steps[len(steps)-1])
}

func TestNextPrevAreInverse(t *testing.T) {
	for _, step := range Steps() {
		next, ok := step.Next()
		if !ok {
			assert.Equal(t, Terminal(), step)
			continue
		}
		prev, ok := next.Prev()
		require.True(t, ok)
		assert.Equal(t, step, prev, "prev(next(%s)) != %s", step, step)
	}
}

func TestBoundarySteps(t *testing.T) {
	_, ok := Initial().Prev()
	assert.False(t, ok, "initial step must have no prev")

	_, ok = Terminal().Next()
	assert.False(t, ok, "terminal step must have no next")
}

func TestParseStep(t *testing.T) {
	step, err := ParseStep("CERTIFICATE_SURRENDER")
	require.NoError(t, err)
	assert.Equal(t, StepCertificateSurrender, step)

	_, err = ParseStep("UPLOAD_EXCEL")
	require.Error(t, err)
}
