package emueeprom

import (
	"testing"

	assertion "github.com/stretchr/testify/assert"
)

// TestClassifyRecoveryDecisionTable exercises every (p1State, p2State) row
// spec.md's recovery table lists explicitly, plus the mirrored rows for the
// FULL-state combinations the table gives only from one side.
func TestClassifyRecoveryDecisionTable(t *testing.T) {
	cases := []struct {
		name       string
		s1, s2     PageState
		mustFormat bool
		wantKinds  []recoveryStepKind
	}{
		{"erased|active", StateErased, StateActive, false, []recoveryStepKind{stepErase, stepSetState}},
		{"erased|receive", StateErased, StateReceive, false, []recoveryStepKind{stepErase, stepSetState, stepSetState}},
		{"erased|erased", StateErased, StateErased, true, nil},
		{"receive|active", StateReceive, StateActive, false, []recoveryStepKind{stepErase, stepTransfer}},
		{"receive|erased", StateReceive, StateErased, false, []recoveryStepKind{stepErase, stepSetState, stepSetState}},
		{"receive|full", StateReceive, StateFull, false, []recoveryStepKind{stepErase, stepTransfer}},
		{"active|active", StateActive, StateActive, true, nil},
		{"active|erased", StateActive, StateErased, false, []recoveryStepKind{stepErase, stepSetState}},
		{"active|formatted", StateActive, StateFormatted, false, nil},
		{"active|receive", StateActive, StateReceive, false, []recoveryStepKind{stepErase, stepTransfer}},
		{"active|full", StateActive, StateFull, false, []recoveryStepKind{stepErase, stepSetState}},
		{"formatted|active", StateFormatted, StateActive, false, nil},
		{"formatted|full", StateFormatted, StateFull, false, []recoveryStepKind{stepTransfer}},
		{"full|formatted", StateFull, StateFormatted, false, []recoveryStepKind{stepTransfer}},
		{"full|receive", StateFull, StateReceive, false, []recoveryStepKind{stepErase, stepTransfer}},
		{"full|active", StateFull, StateActive, false, []recoveryStepKind{stepErase, stepSetState}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assertion.New(t)
			steps, mustFormat := classifyRecovery(PageA, tc.s1, PageB, tc.s2)
			assert.Equal(tc.mustFormat, mustFormat)
			if tc.mustFormat {
				assert.Nil(steps)
				return
			}
			assert.Len(steps, len(tc.wantKinds))
			for i, k := range tc.wantKinds {
				assert.Equal(k, steps[i].kind, "step %d", i)
			}
		})
	}
}

// TestClassifyRecoveryNeverPanics sweeps the full 5x5 state space: every
// combination must return either a format directive or a (possibly empty)
// step list, never panic or silently lose a page.
func TestClassifyRecoveryNeverPanics(t *testing.T) {
	states := []PageState{StateErased, StateFormatted, StateReceive, StateActive, StateFull}
	for _, s1 := range states {
		for _, s2 := range states {
			s1, s2 := s1, s2
			assertion.NotPanics(t, func() {
				classifyRecovery(PageA, s1, PageB, s2)
			})
		}
	}
}

func TestClassifyRecoveryUnrecognizedPairsFormat(t *testing.T) {
	assert := assertion.New(t)
	_, mustFormat := classifyRecovery(PageA, StateFormatted, PageB, StateReceive)
	assert.True(mustFormat)
	_, mustFormat = classifyRecovery(PageA, StateFull, PageB, StateFull)
	assert.True(mustFormat)
}

func TestRecoverAppliesStepsAndRunsTransfer(t *testing.T) {
	assert := assertion.New(t)
	opts := DefaultOptions.withDefaults()
	backend := newRecordingBackend(EncodingSimple, opts.PageSize)
	core := newEngineCore(backend, opts)

	assert.NoError(core.setPageState(PageA, StateActive))
	assert.NoError(core.setPageState(PageB, StateReceive))

	transferCalled := false
	err := core.recover(func(src, dst Page) error {
		transferCalled = true
		return core.finalizeTransfer(src, dst)
	})
	assert.NoError(err)
	assert.True(transferCalled)

	s1, err := core.pageState(PageA)
	assert.NoError(err)
	s2, err := core.pageState(PageB)
	assert.NoError(err)
	assert.Equal(StateFormatted, s1)
	assert.Equal(StateActive, s2)
}

func TestRecoverFormatsOnAmbiguousPair(t *testing.T) {
	assert := assertion.New(t)
	opts := DefaultOptions.withDefaults()
	backend := newRecordingBackend(EncodingSimple, opts.PageSize)
	core := newEngineCore(backend, opts)

	assert.NoError(core.setPageState(PageA, StateActive))
	assert.NoError(core.setPageState(PageB, StateActive))

	err := core.recover(core.finalizeTransfer)
	assert.NoError(err)

	s1, _ := core.pageState(PageA)
	s2, _ := core.pageState(PageB)
	assert.True((s1 == StateActive && s2 == StateFormatted) || (s1 == StateFormatted && s2 == StateActive))
}
