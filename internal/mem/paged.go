package mem

import (
	"math"
	"sort"
)

// Paged implements a sparse paged memory of T values.
// Pages are kept sorted and never overlap; unallocated addresses read as the
// zero T.
type Paged[T any] struct {
	Core
	pages []page[T]
}

// Ints is the integer cell memory used by the interpreter.
type Ints = Paged[int]

// Bytes is a byte addressed memory, as seen by a simulated target.
type Bytes = Paged[byte]

type page[T any] struct {
	base uint
	data []T
}

func (p page[T]) end() uint { return p.base + uint(len(p.data)) }

// find returns the index of the first page that ends after addr.
func (m *Paged[T]) find(addr uint) int {
	return sort.Search(len(m.pages), func(i int) bool {
		return m.pages[i].end() > addr
	})
}

// Size returns an address one position higher than the last position in the
// last page allocated so far.
func (m *Paged[T]) Size() uint {
	if i := len(m.pages) - 1; i >= 0 {
		return m.pages[i].end()
	}
	return 0
}

// Load returns a single value from the given address.
// Unallocated pages are left unallocated, resulting in implicit zero values.
// Returns an error if addr exceeds any Limit.
func (m *Paged[T]) Load(addr uint) (val T, _ error) {
	if err := m.checkLimit(addr, "load"); err != nil {
		return val, err
	}
	if i := m.find(addr); i < len(m.pages) {
		if p := m.pages[i]; p.base <= addr {
			return p.data[addr-p.base], nil
		}
	}
	return val, nil
}

// LoadInto reads len(buf) values from memory starting at addr, zeroing buf
// wherever it spans unallocated memory.
// Returns an error if Limit would be exceeded; no partial load is done.
func (m *Paged[T]) LoadInto(addr uint, buf []T) error {
	if len(buf) == 0 {
		return nil
	}
	if err := m.checkLimit(addr+uint(len(buf)), "load"); err != nil {
		return err
	}

	for i := m.find(addr); i < len(m.pages) && len(buf) > 0; i++ {
		p := m.pages[i]
		if p.base > addr {
			gap := p.base - addr
			if gap >= uint(len(buf)) {
				break
			}
			clear(buf[:gap])
			buf = buf[gap:]
			addr = p.base
		}
		n := copy(buf, p.data[addr-p.base:])
		buf = buf[n:]
		addr += uint(n)
	}
	clear(buf)
	return nil
}

// Stor stores any values at addr, allocating pages if necessary.
// Returns an error if Limit would be exceeded; no partial store is done.
func (m *Paged[T]) Stor(addr uint, values ...T) error {
	if len(values) == 0 {
		return nil
	}
	if err := m.checkLimit(addr+uint(len(values)), "stor"); err != nil {
		return err
	}

	for i := m.find(addr); len(values) > 0; i++ {
		if i == len(m.pages) || m.pages[i].base > addr {
			m.alloc(i, addr)
		}
		p := m.pages[i]
		n := copy(p.data[addr-p.base:], values)
		values = values[n:]
		addr += uint(n)
	}
	return nil
}

// alloc inserts a new page holding addr at index i.
func (m *Paged[T]) alloc(i int, addr uint) {
	var prevEnd uint
	nextBase := uint(math.MaxUint)
	if i > 0 {
		prevEnd = m.pages[i-1].end()
	}
	if i < len(m.pages) {
		nextBase = m.pages[i].base
	}
	base, end := m.span(addr, prevEnd, nextBase)

	m.pages = append(m.pages, page[T]{})
	copy(m.pages[i+1:], m.pages[i:])
	m.pages[i] = page[T]{base, make([]T, end-base)}
}

// Dump provides page data for tests and diagnostics.
type Dump[T any] struct {
	Bases []uint
	Sizes []uint
	Pages [][]T
}

// Dump returns the current page layout.
func (m *Paged[T]) Dump() (d Dump[T]) {
	for _, p := range m.pages {
		d.Bases = append(d.Bases, p.base)
		d.Sizes = append(d.Sizes, uint(len(p.data)))
		d.Pages = append(d.Pages, p.data)
	}
	return d
}
