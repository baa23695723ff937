package mem

import "fmt"

// DefaultPageSize is used when Core.PageSize is left zero.
const DefaultPageSize = 256

// Core holds the settings shared by every paged memory.
type Core struct {
	// PageSize is the length, and alignment, of newly allocated pages.
	// Pages allocated into a gap between existing pages may be shorter.
	PageSize uint

	// Limit, if non-zero, bounds every access: any load or store that would
	// reach past it fails with a LimitError.
	Limit uint
}

// LimitError indicates that a memory operation, like load or store, exceeded a limit.
type LimitError struct {
	Addr uint
	Op   string
}

func (lim LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded by %v @%v", lim.Op, lim.Addr)
}

func (c Core) checkLimit(addr uint, op string) error {
	if c.Limit != 0 && addr > c.Limit {
		return LimitError{addr, op}
	}
	return nil
}

// span returns the aligned page that would hold addr, clipped to start no
// earlier than prevEnd and to end no later than nextBase.
func (c *Core) span(addr, prevEnd, nextBase uint) (base, end uint) {
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	base = addr / c.PageSize * c.PageSize
	end = base + c.PageSize
	if base < prevEnd {
		base = prevEnd
	}
	if end > nextBase {
		end = nextBase
	}
	return base, end
}
