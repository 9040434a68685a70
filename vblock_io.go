package lightnvm

import "fmt"

// BlockResult reports how far a block read or write got. Pages before
// FailedPage completed and stay on the media; nothing is rolled back.
type BlockResult struct {
	Pages      int // pages transferred
	Bytes      int // bytes transferred
	FailedPage int // first failing page, -1 when every page completed
}

// Failed reports whether a page failed
func (r BlockResult) Failed() bool {
	return r.FailedPage >= 0
}

// Code folds the result into one integer: 0 on success, -(page+1) when
// page failed.
func (r BlockResult) Code() int {
	if !r.Failed() {
		return 0
	}
	return -(r.FailedPage + 1)
}

// Erase erases every plane of the block. It returns the byte count the
// gateway reported, which media managers commonly leave at zero.
func (v *VBlock) Erase() (int, error) {
	if err := v.checkOperable("BLOCK_ERASE"); err != nil {
		return 0, err
	}

	list := v.dev.geo.PlaneStripe(v.addr)
	return v.dev.submit("BLOCK_ERASE", OpErase, list, nil, -1)
}

// PageWrite programs one page stripe. buf must be exactly VPageBytes.
func (v *VBlock) PageWrite(buf []byte, page int) (int, error) {
	if err := v.checkPage("PAGE_WRITE", buf, page); err != nil {
		return 0, err
	}
	return v.pageIO("PAGE_WRITE", OpWrite, buf, page)
}

// PageRead reads one page stripe. buf must be exactly VPageBytes.
func (v *VBlock) PageRead(buf []byte, page int) (int, error) {
	if err := v.checkPage("PAGE_READ", buf, page); err != nil {
		return 0, err
	}
	return v.pageIO("PAGE_READ", OpRead, buf, page)
}

// Write programs the whole block page by page from buf, which must be
// exactly VBlockBytes. It stops at the first failing page.
func (v *VBlock) Write(buf []byte) (BlockResult, error) {
	return v.blockIO("BLOCK_WRITE", OpWrite, buf)
}

// Read reads the whole block page by page into buf, which must be exactly
// VBlockBytes. It stops at the first failing page.
func (v *VBlock) Read(buf []byte) (BlockResult, error) {
	return v.blockIO("BLOCK_READ", OpRead, buf)
}

func (v *VBlock) blockIO(opName string, op Opcode, buf []byte) (BlockResult, error) {
	res := BlockResult{FailedPage: -1}

	if err := v.checkOperable(opName); err != nil {
		return res, err
	}

	geo := v.dev.geo
	if len(buf) != geo.VBlockBytes() {
		return res, NewBlockError(opName, v.devName(), v.addr, ErrCodeInvalidParameters,
			fmt.Sprintf("buffer of %d bytes, want %d", len(buf), geo.VBlockBytes()))
	}

	vpage := geo.VPageBytes()
	for page := 0; page < geo.NPages(); page++ {
		off := page * vpage
		n, err := v.pageIO(opName, op, buf[off:off+vpage], page)
		if err != nil {
			res.FailedPage = page
			return res, err
		}
		res.Pages++
		res.Bytes += n
	}

	return res, nil
}

func (v *VBlock) pageIO(opName string, op Opcode, buf []byte, page int) (int, error) {
	list := v.dev.geo.PageStripe(v.addr, page)
	return v.dev.submit(opName, op, list, buf, page)
}

func (v *VBlock) checkOperable(op string) error {
	if v == nil {
		return NewError(op, ErrCodeInvalidParameters, "nil virtual block")
	}
	if v.state != VBlockReserved {
		return NewBlockError(op, v.devName(), v.addr, ErrCodeInvalidState,
			fmt.Sprintf("virtual block is %s", v.state))
	}
	if v.dev == nil {
		return NewBlockError(op, "", v.addr, ErrCodeInvalidParameters, "virtual block has no device")
	}
	if v.dev.IsClosed() {
		return NewBlockError(op, v.devName(), v.addr, ErrCodeDeviceClosed, "device is closed")
	}
	return nil
}

func (v *VBlock) checkPage(op string, buf []byte, page int) error {
	if err := v.checkOperable(op); err != nil {
		return err
	}

	geo := v.dev.geo
	if page < 0 || page >= geo.NPages() {
		e := NewBlockError(op, v.devName(), v.addr, ErrCodeInvalidParameters,
			fmt.Sprintf("page %d outside block of %d pages", page, geo.NPages()))
		e.Page = page
		return e
	}
	if len(buf) != geo.VPageBytes() {
		e := NewBlockError(op, v.devName(), v.addr, ErrCodeInvalidParameters,
			fmt.Sprintf("buffer of %d bytes, want %d", len(buf), geo.VPageBytes()))
		e.Page = page
		return e
	}
	return nil
}
