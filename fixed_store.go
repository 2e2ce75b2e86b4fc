package emueeprom

// FixedStore is the ModeFixed engine: 16-bit values addressed by a 16-bit
// key, backed by a RAM read cache and an optional deferred-write buffer
// (§4.5). Its public surface returns FixedReadStatus/FixedWriteStatus only
// — never the variable-mode enums — per §9's "don't union error kinds
// across modes" guidance.
type FixedStore struct {
	*engineCore
	cache *fixedCache
}

// NewFixedStore constructs a fixed-mode store. Call Init before any other
// method; construction alone performs no I/O.
func NewFixedStore(backend Backend, opts *Options) *FixedStore {
	if opts == nil {
		opts = DefaultOptions
	}
	resolved := opts.withDefaults()
	resolved.Mode = ModeFixed
	core := newEngineCore(backend, resolved)
	return &FixedStore{
		engineCore: core,
		cache:      newFixedCache(maxFixedAddress(core.opts.PageSize)),
	}
}

func (fs *FixedStore) transferForRecovery(src, dst Page) error {
	return fs.transferFixedFromScan(src, dst)
}

// Init performs recovery (§4.8) and rebuilds the read cache by scanning
// the resulting ACTIVE page. It is idempotent: running it again on an
// already-consistent pair of pages performs zero erases (property 7).
func (fs *FixedStore) Init() error {
	if err := fs.backend.Init(); err != nil {
		return wrapf(err, "backend init")
	}
	fs.invalidateWriteState()
	if err := fs.recover(fs.transferForRecovery); err != nil {
		return err
	}
	return fs.rebuildCache()
}

func (fs *FixedStore) rebuildCache() error {
	fs.cache.reset()

	active, err := fs.findActivePageForRead()
	if err != nil {
		fs.log.WithError(err).Warn("cache rebuild: no active page after recovery, formatting")
		if ferr := fs.doFormat(fs.transferForRecovery); ferr != nil {
			return ferr
		}
		active, err = fs.findActivePageForRead()
		if err != nil {
			return err
		}
	}

	page, err := fs.readPage(active)
	if err != nil {
		fs.log.WithError(err).Warn("cache rebuild: read failed, formatting")
		if ferr := fs.doFormat(fs.transferForRecovery); ferr != nil {
			return ferr
		}
		return fs.rebuildCache()
	}

	H := fs.header.size()
	seen := newKeySet[uint16](int(maxFixedAddress(fs.opts.PageSize)))
	for off := uint32(len(page)); off > H; off -= fixedCellSize {
		cell := page[off-fixedCellSize : off]
		if isFixedCellFree(cell) {
			continue
		}
		key, value := decodeFixedCell(cell)
		if key == fixedReservedKey || seen.has(key) {
			continue
		}
		seen.mark(key)
		fs.cache.set(key, value)
	}

	if fs.opts.UseFactoryPage {
		if err := fs.seedCacheFromFactoryGaps(); err != nil {
			return err
		}
	}
	return nil
}

// seedCacheFromFactoryGaps copies factory records into the cache for any
// key the active page has no record for (§4.8: "that factory record is
// copied in"). The factory page itself is never mutated (invariant 6).
func (fs *FixedStore) seedCacheFromFactoryGaps() error {
	state, err := fs.pageState(PageFactory)
	if err != nil || state != StateActive {
		return nil
	}
	page, err := fs.readPage(PageFactory)
	if err != nil {
		return err
	}
	H := fs.header.size()
	for off := H; off+fixedCellSize <= uint32(len(page)); off += fixedCellSize {
		cell := page[off : off+fixedCellSize]
		if isFixedCellFree(cell) {
			continue
		}
		key, value := decodeFixedCell(cell)
		if key == fixedReservedKey {
			continue
		}
		if _, ok := fs.cache.get(key); !ok {
			fs.cache.set(key, value)
		}
	}
	return nil
}

// Read returns the newest value for key, consulting the cache first and
// falling through to the scanner on a miss (§4.5).
func (fs *FixedStore) Read(key uint16) (uint16, FixedReadStatus) {
	if key == fixedReservedKey {
		fs.log.WithError(ErrReservedKey).Debug("read: reserved key rejected")
		return 0, FixedReadNoVar
	}
	if key >= uint16(maxFixedAddress(fs.opts.PageSize)) {
		return 0, FixedReadError
	}
	if v, ok := fs.cache.get(key); ok {
		return v, FixedReadOK
	}

	active, err := fs.findActivePageForRead()
	if err != nil {
		return 0, FixedReadNoPage
	}
	page, err := fs.readPage(active)
	if err != nil {
		fs.log.WithError(err).Error("read: backend read failed")
		return 0, FixedReadError
	}

	var tail uint32
	if fs.ws.valid && fs.ws.page == active {
		tail = fs.ws.offset
	}
	value, found := scanFixed(page, fs.header.size(), key, tail)
	if !found {
		return 0, FixedReadNoVar
	}
	fs.cache.set(key, value)
	return value, FixedReadOK
}

// Write appends (key, value). When cacheOnly is set, only the RAM cache is
// updated; the write becomes durable only after a later Flush (§4.5, §8
// properties 4-5).
func (fs *FixedStore) Write(key, value uint16, cacheOnly bool) FixedWriteStatus {
	if key == fixedReservedKey {
		fs.log.WithError(ErrReservedKey).Debug("write: reserved key rejected")
		return FixedWriteError
	}
	if key >= uint16(maxFixedAddress(fs.opts.PageSize)) {
		return FixedWriteError
	}
	if cacheOnly {
		fs.cache.setDeferred(key, value)
		return FixedWriteOK
	}

	status := fs.writeInternal(key, value)
	if status == FixedWritePageFull {
		if err := fs.PageTransfer(); err != nil {
			fs.log.WithError(err).Error("write: page transfer failed")
			return FixedWritePageFull
		}
		status = fs.writeInternal(key, value)
	}
	if status == FixedWriteOK {
		fs.cache.set(key, value)
	}
	return status
}

func (fs *FixedStore) writeInternal(key, value uint16) FixedWriteStatus {
	active, err := fs.findActivePageForWrite()
	if err != nil {
		return FixedWriteNoPage
	}

	offset, err := fs.nextFixedOffset(active)
	if err != nil {
		fs.log.WithError(err).Error("write: locating append offset failed")
		return FixedWriteError
	}
	if offset+fixedCellSize > fs.opts.PageSize {
		return FixedWritePageFull
	}

	if err := appendFixedCell(fs.backend, active, offset, key, value); err != nil {
		fs.log.WithError(err).Error("write: backend write failed")
		return FixedWriteError
	}
	fs.ws = pageWriteState{page: active, offset: offset + fixedCellSize, valid: true}
	return FixedWriteOK
}

func (fs *FixedStore) nextFixedOffset(active Page) (uint32, error) {
	if fs.ws.valid && fs.ws.page == active {
		return fs.ws.offset, nil
	}
	page, err := fs.readPage(active)
	if err != nil {
		return 0, err
	}
	return findFreeFixedCell(page, fs.header.size()), nil
}

// Format destructively resets both pages and rebuilds the cache.
func (fs *FixedStore) Format() error {
	if err := fs.doFormat(fs.transferForRecovery); err != nil {
		return err
	}
	return fs.rebuildCache()
}

// PageStatus reports the diagnostic state of p.
func (fs *FixedStore) PageStatus(p Page) PageState {
	s, err := fs.pageState(p)
	if err != nil {
		return StateErased
	}
	return s
}

// PageTransfer forces compaction: the cache (which already reflects every
// on-flash record plus any pending cache-only writes) is dumped onto the
// page opposite whichever is currently ACTIVE.
func (fs *FixedStore) PageTransfer() error {
	active, err := fs.findActivePageForRead()
	if err != nil {
		return ErrNoPage
	}
	return fs.transferFixedFromCache(fs.cache, active, active.other())
}

// Flush makes any pending cache-only writes durable by forcing a page
// transfer. A no-op (and zero erases) if nothing is pending.
func (fs *FixedStore) Flush() error {
	if !fs.cache.hasDeferred() {
		return nil
	}
	if err := fs.PageTransfer(); err != nil {
		return err
	}
	fs.cache.clearDeferred()
	return nil
}
