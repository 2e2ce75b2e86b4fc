package emueeprom

// VarStore is the ModeVariable engine: CRC-checked, variable-length
// payloads addressed by a 32-bit key, with optional compression (§4.3,
// §6.3). It has no RAM cache — every read and write re-derives its answer
// from the ACTIVE page — and its public surface returns only
// VarReadStatus/VarWriteStatus.
type VarStore struct {
	*engineCore
}

// NewVarStore constructs a variable-mode store. Call Init before any other
// method; construction alone performs no I/O.
func NewVarStore(backend Backend, opts *Options) *VarStore {
	if opts == nil {
		opts = DefaultOptions
	}
	resolved := opts.withDefaults()
	resolved.Mode = ModeVariable
	return &VarStore{engineCore: newEngineCore(backend, resolved)}
}

// Init performs recovery (§4.8). There is no cache to rebuild: every
// lookup re-scans the ACTIVE page.
func (vs *VarStore) Init() error {
	if err := vs.backend.Init(); err != nil {
		return wrapf(err, "backend init")
	}
	vs.invalidateWriteState()
	return vs.recover(vs.transferVar)
}

// Read copies the newest payload for key into buf and reports how many
// bytes were written. BufferTooSmall is reported when len(payload)+1 >=
// len(buf) (§7), leaving room for a trailing NUL the way the teacher's
// fixed-width APIs do.
func (vs *VarStore) Read(key uint32, buf []byte) (int, VarReadStatus) {
	if key == varReservedKey {
		vs.log.WithError(ErrReservedKey).Debug("read: reserved key rejected")
		return 0, VarReadNoIndex
	}

	active, err := vs.findActivePageForRead()
	if err != nil {
		return 0, VarReadNoPage
	}
	page, err := vs.readPage(active)
	if err != nil {
		vs.log.WithError(err).Error("read: backend read failed")
		return 0, VarReadError
	}

	var tail uint32
	if vs.ws.valid && vs.ws.page == active {
		tail = vs.ws.offset
	}
	hasTag := varHasCompTag(vs.opts.Compression)
	meta, err := scanVar(page, vs.header.size(), key, hasTag, tail)
	if err != nil {
		vs.log.WithError(err).Warn("read: corrupt page during scan")
		return 0, VarReadDataError
	}
	if meta == nil {
		return 0, VarReadNoIndex
	}

	// INVALID_CRC is reported as-is: the scanner has already stopped at the
	// newest entry for key, and we do not fall back to an older version
	// behind it (§9: "no silent fallback to stale data on CRC failure").
	if !meta.verifyCRC(page) {
		return 0, VarReadInvalidCRC
	}

	payload, err := decompressPayload(meta.storedPayload(page), meta.compressed, vs.opts.Compression)
	if err != nil {
		vs.log.WithError(err).Error("read: decompress failed")
		return 0, VarReadDataError
	}
	if len(payload)+1 >= len(buf) {
		return 0, VarReadBufferTooSmall
	}
	return copy(buf, payload), VarReadOK
}

// IndexExists reports whether key has a current (possibly CRC-invalid)
// entry on the ACTIVE page, without validating or returning its payload.
func (vs *VarStore) IndexExists(key uint32) bool {
	if key == varReservedKey {
		vs.log.WithError(ErrReservedKey).Debug("index exists: reserved key rejected")
		return false
	}
	active, err := vs.findActivePageForRead()
	if err != nil {
		return false
	}
	page, err := vs.readPage(active)
	if err != nil {
		return false
	}
	var tail uint32
	if vs.ws.valid && vs.ws.page == active {
		tail = vs.ws.offset
	}
	meta, err := scanVar(page, vs.header.size(), key, varHasCompTag(vs.opts.Compression), tail)
	return err == nil && meta != nil
}

// Write appends payload under key, compressing it first if configured
// (§4.3). A payload whose entry never fits on any freshly formatted page
// is rejected immediately as PageFull without attempting a transfer,
// since no amount of compaction would help (§8 property 10); a payload
// that merely doesn't fit on the *current* page triggers one compaction
// and retry.
func (vs *VarStore) Write(key uint32, payload []byte) VarWriteStatus {
	if key == varReservedKey {
		vs.log.WithError(ErrReservedKey).Debug("write: reserved key rejected")
		return VarWriteError
	}
	if len(payload) == 0 {
		vs.log.WithError(ErrEmptyPayload).Debug("write: empty payload rejected")
		return VarWriteDataError
	}

	stored, compressed := compressPayload(payload, vs.opts.Compression)
	size := varEntrySize(len(stored), vs.opts.Compression)
	H := vs.header.size()
	if H+4 > vs.opts.PageSize || size >= vs.opts.PageSize-H-4 {
		vs.log.WithError(ErrPageFull).Warn("write: entry can never fit on a page")
		return VarWritePageFull
	}

	status := vs.appendVar(key, stored, compressed, size)
	if status == VarWritePageFull {
		if err := vs.PageTransfer(); err != nil {
			vs.log.WithError(err).Error("write: page transfer failed")
			return VarWritePageFull
		}
		status = vs.appendVar(key, stored, compressed, size)
	}
	return status
}

func (vs *VarStore) appendVar(key uint32, stored []byte, compressed bool, size uint32) VarWriteStatus {
	active, err := vs.findActivePageForWrite()
	if err != nil {
		return VarWriteNoPage
	}

	offset, err := vs.nextVarOffset(active)
	if err != nil {
		vs.log.WithError(err).Error("write: locating append offset failed")
		return VarWriteError
	}
	if offset+size > vs.opts.PageSize {
		return VarWritePageFull
	}

	entry := encodeVarEntry(key, stored, vs.opts.Compression, compressed)
	if err := appendVarEntry(vs.backend, active, offset, entry); err != nil {
		vs.log.WithError(err).Error("write: backend write failed")
		return VarWriteError
	}
	vs.ws = pageWriteState{
		page:   active,
		offset: alignUp(offset+uint32(len(entry)), vs.opts.WriteAlignment),
		valid:  true,
	}
	return VarWriteOK
}

func (vs *VarStore) nextVarOffset(active Page) (uint32, error) {
	if vs.ws.valid && vs.ws.page == active {
		return vs.ws.offset, nil
	}
	page, err := vs.readPage(active)
	if err != nil {
		return 0, err
	}
	return findVarFrontier(page, vs.header.size(), varHasCompTag(vs.opts.Compression), vs.opts.WriteAlignment)
}

// Format destructively resets both pages.
func (vs *VarStore) Format() error {
	return vs.doFormat(vs.transferVar)
}

// PageStatus reports the diagnostic state of p.
func (vs *VarStore) PageStatus(p Page) PageState {
	s, err := vs.pageState(p)
	if err != nil {
		return StateErased
	}
	return s
}

// PageTransfer forces compaction of the currently ACTIVE page onto its
// counterpart, scanning src since there is no RAM cache to dump.
func (vs *VarStore) PageTransfer() error {
	active, err := vs.findActivePageForRead()
	if err != nil {
		return ErrNoPage
	}
	return vs.transferVar(active, active.other())
}
