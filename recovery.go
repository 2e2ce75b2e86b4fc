package emueeprom

// recoveryStepKind distinguishes the three primitive actions the recovery
// decision table can request.
type recoveryStepKind uint8

const (
	stepErase recoveryStepKind = iota
	stepSetState
	stepTransfer
)

type recoveryStep struct {
	kind     recoveryStepKind
	page     PageState // unused for stepErase/stepTransfer
	target   Page
	state    PageState
	src, dst Page
}

// classifyRecovery is a pure function of (p1, p1State, p2, p2State) that
// returns the init-time recovery plan (§4.8). It is deliberately free of
// any engine state so the full decision table can be exercised by table-
// driven tests without a backend. mustFormat means "ignore steps, call
// Format() outright"; steps is nil in that case.
func classifyRecovery(p1 Page, s1 PageState, p2 Page, s2 PageState) (steps []recoveryStep, mustFormat bool) {
	switch s1 {
	case StateErased:
		switch s2 {
		case StateActive:
			// ERASED | VALID: erase p1; mark p1 FORMATTED.
			return []recoveryStep{
				{kind: stepErase, target: p1},
				{kind: stepSetState, target: p1, state: StateFormatted},
			}, false
		case StateReceive:
			// ERASED | RECEIVE: erase p1; mark p1 FORMATTED; mark p2 VALID
			// (the transfer that was filling p2 had completed).
			return []recoveryStep{
				{kind: stepErase, target: p1},
				{kind: stepSetState, target: p1, state: StateFormatted},
				{kind: stepSetState, target: p2, state: StateActive},
			}, false
		case StateErased:
			// ERASED | ERASED: format from scratch.
			return nil, true
		default:
			return nil, true
		}

	case StateReceive:
		switch s2 {
		case StateActive:
			// RECEIVE | VALID: erase p1, then transfer p2 → p1.
			return []recoveryStep{
				{kind: stepErase, target: p1},
				{kind: stepTransfer, src: p2, dst: p1},
			}, false
		case StateErased:
			// RECEIVE | ERASED: the receiving page already holds the
			// complete transfer; erase p2, format it, and promote p1.
			return []recoveryStep{
				{kind: stepErase, target: p2},
				{kind: stepSetState, target: p2, state: StateFormatted},
				{kind: stepSetState, target: p1, state: StateActive},
			}, false
		case StateFull:
			// RECEIVE | FULL (latched): receive side is unreliable, erase
			// it and replay the transfer from the still-intact FULL page.
			return []recoveryStep{
				{kind: stepErase, target: p1},
				{kind: stepTransfer, src: p2, dst: p1},
			}, false
		default:
			// RECEIVE | * (other): ambiguous, format.
			return nil, true
		}

	case StateActive:
		switch s2 {
		case StateActive:
			// VALID | VALID: ambiguous corruption, format.
			return nil, true
		case StateErased:
			// VALID | ERASED: erase p2; mark p2 FORMATTED.
			return []recoveryStep{
				{kind: stepErase, target: p2},
				{kind: stepSetState, target: p2, state: StateFormatted},
			}, false
		case StateFormatted:
			// VALID | FORMATTED: canonical running state, no action.
			return nil, false
		case StateReceive:
			// VALID | RECEIVE: erase p2, then transfer p1 → p2.
			return []recoveryStep{
				{kind: stepErase, target: p2},
				{kind: stepTransfer, src: p1, dst: p2},
			}, false
		case StateFull:
			// VALID | FULL (latched, mirrored row): the transfer into p1
			// already completed; erase the stale FULL side.
			return []recoveryStep{
				{kind: stepErase, target: p2},
				{kind: stepSetState, target: p2, state: StateFormatted},
			}, false
		default:
			return nil, true
		}

	case StateFormatted:
		switch s2 {
		case StateActive:
			// FORMATTED | VALID: canonical after a completed transfer.
			return nil, false
		case StateFull:
			// FORMATTED | FULL (latched, mirrored row): resume the
			// transfer from the FULL side into this already-erased one.
			return []recoveryStep{
				{kind: stepTransfer, src: p2, dst: p1},
			}, false
		default:
			return nil, true
		}

	case StateFull:
		switch s2 {
		case StateFormatted:
			// FULL | FORMATTED (latched): resume the transfer.
			return []recoveryStep{
				{kind: stepTransfer, src: p1, dst: p2},
			}, false
		case StateReceive:
			// FULL | RECEIVE (latched): receive side is unreliable, erase
			// it and replay the transfer from the still-intact FULL page.
			return []recoveryStep{
				{kind: stepErase, target: p2},
				{kind: stepTransfer, src: p1, dst: p2},
			}, false
		case StateActive:
			// FULL | ACTIVE (latched): transfer completed, erase missed.
			return []recoveryStep{
				{kind: stepErase, target: p1},
				{kind: stepSetState, target: p1, state: StateFormatted},
			}, false
		default:
			return nil, true
		}

	default:
		return nil, true
	}
}

// recover drives the two wear-leveling pages to a consistent state at
// Init time (§4.8), resuming or restarting any transfer that was
// interrupted by power loss. A failed transfer during recovery falls back
// to Format(), whose own failure is the only thing recover reports.
func (c *engineCore) recover(transferFn func(src, dst Page) error) error {
	s1, err := c.pageState(PageA)
	if err != nil {
		return err
	}
	s2, err := c.pageState(PageB)
	if err != nil {
		return err
	}

	c.log.WithFields(map[string]interface{}{"a": s1.String(), "b": s2.String()}).Debug("recovery: observed page states")

	steps, mustFormat := classifyRecovery(PageA, s1, PageB, s2)
	if mustFormat {
		return c.doFormat(transferFn)
	}

	for _, st := range steps {
		switch st.kind {
		case stepErase:
			if err := c.backend.ErasePage(st.target); err != nil {
				return err
			}
		case stepSetState:
			if err := c.setPageState(st.target, st.state); err != nil {
				return err
			}
		case stepTransfer:
			if err := transferFn(st.src, st.dst); err != nil {
				c.log.WithError(err).Warn("recovery: page transfer failed, formatting")
				return c.doFormat(transferFn)
			}
		}
	}
	return nil
}

// doFormat erases both pages, optionally seeds PageA from PageFactory, and
// marks PageA ACTIVE / PageB FORMATTED (§4.8's Format). transferFn is
// unused here but threaded through so callers share one signature; format
// never transfers, it destroys.
func (c *engineCore) doFormat(transferFn func(src, dst Page) error) error {
	_ = transferFn

	if err := c.backend.ErasePage(PageA); err != nil {
		return err
	}
	if err := c.backend.ErasePage(PageB); err != nil {
		return err
	}

	if c.opts.UseFactoryPage {
		factoryState, err := c.pageState(PageFactory)
		if err == nil && factoryState == StateActive {
			if err := c.seedFromFactory(); err != nil {
				return err
			}
			c.ws = pageWriteState{}
			return nil
		}
	}

	// Intent (§9 open question): PageA ACTIVE, then PageB FORMATTED. One
	// variant of the latched-header path was observed setting PageA
	// ACTIVE then FORMATTED in sequence, which looks like a copy-paste
	// typo; we follow the intent stated above.
	if err := c.setPageState(PageA, StateActive); err != nil {
		return err
	}
	if err := c.setPageState(PageB, StateFormatted); err != nil {
		return err
	}
	c.ws = pageWriteState{}
	return nil
}

// seedFromFactory copies PageFactory into PageA byte-for-byte up to the
// first all-ones word, then marks PageA ACTIVE / PageB FORMATTED.
func (c *engineCore) seedFromFactory() error {
	factory, err := c.backend.Read(PageFactory, 0, c.opts.PageSize)
	if err != nil {
		return err
	}

	const word = 4
	for off := uint32(0); off+word <= c.opts.PageSize; off += word {
		chunk := factory[off : off+word]
		if isFixedCellFree(chunk) {
			break
		}
		if err := c.backend.Write(PageA, off, chunk); err != nil {
			return err
		}
	}

	if err := c.setPageState(PageA, StateActive); err != nil {
		return err
	}
	return c.setPageState(PageB, StateFormatted)
}
