package emueeprom

import log "github.com/sirupsen/logrus"

// pageWriteState caches the next append offset for whichever page is
// currently the write target, so most writes skip the forward scan
// described in §4.6 step 2.
type pageWriteState struct {
	page  Page
	offset uint32
	valid bool
}

// engineCore holds everything the engine owns for the lifetime of one
// Init/teardown cycle: the backend, configuration, header codec, and
// write-offset cache (§5, "all engine state ... must not be aliased").
// FixedStore and VarStore embed it and add their mode-specific public
// surface and result enums.
type engineCore struct {
	backend Backend
	opts    *Options
	header  headerCodec
	log     *log.Logger

	ws pageWriteState
}

func newEngineCore(backend Backend, opts *Options) *engineCore {
	resolved := opts.withDefaults()
	return &engineCore{
		backend: backend,
		opts:    resolved,
		header:  newHeaderCodec(resolved.HeaderEncoding),
		log:     resolved.logger(),
	}
}

func (c *engineCore) pageState(p Page) (PageState, error) {
	raw, err := c.backend.Read(p, 0, c.header.size())
	if err != nil {
		return StateErased, err
	}
	if uint32(len(raw)) < c.header.size() {
		c.log.WithError(ErrHeaderTooShort).Warn("page state: short header read, treating as erased")
	}
	return c.header.decode(raw), nil
}

func (c *engineCore) setPageState(p Page, target PageState) error {
	offset, word := c.header.encodeState(target)
	if err := beginWrite(c.backend, p, offset); err != nil {
		return err
	}
	if err := c.backend.Write(p, offset, word); err != nil {
		return err
	}
	return endWrite(c.backend, p)
}

func (c *engineCore) readPage(p Page) ([]byte, error) {
	return c.backend.Read(p, 0, c.opts.PageSize)
}

// findActivePage implements §4.8's findValidPage for reads: the single
// page currently holding the newest-per-key projection.
func (c *engineCore) findActivePageForRead() (Page, error) {
	s1, err := c.pageState(PageA)
	if err != nil {
		return 0, err
	}
	if s1 == StateActive {
		return PageA, nil
	}
	s2, err := c.pageState(PageB)
	if err != nil {
		return 0, err
	}
	if s2 == StateActive {
		return PageB, nil
	}
	return 0, ErrNoPage
}

// findActivePageForWrite implements §4.8's findValidPage for writes: when
// a transfer is in flight, the page in RECEIVE state is the write target,
// not the one still marked ACTIVE (§4.6 step 1).
func (c *engineCore) findActivePageForWrite() (Page, error) {
	s1, err := c.pageState(PageA)
	if err != nil {
		return 0, err
	}
	s2, err := c.pageState(PageB)
	if err != nil {
		return 0, err
	}

	switch {
	case s2 == StateActive:
		if s1 == StateReceive {
			return PageA, nil
		}
		return PageB, nil
	case s1 == StateActive:
		if s2 == StateReceive {
			return PageB, nil
		}
		return PageA, nil
	default:
		return 0, ErrNoPage
	}
}

// invalidateWriteState forgets any cached append offset, forcing the next
// write on this mode to rediscover it by scanning. Called at the start of
// FixedStore.Init and VarStore.Init, before recovery runs.
func (c *engineCore) invalidateWriteState() {
	c.ws = pageWriteState{}
}
