// Package sequence walks register tables, turning wait entries into delays and every other
// entry into one retried bus write.
package sequence

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Reserved addresses.
const (
	// WaitMS marks an entry whose value is a delay in milliseconds.
	WaitMS uint16 = 0x0000
	// TableEnd terminates a table. Its value is ignored.
	TableEnd uint16 = 0x0001
)

// ErrUnterminatedTable is returned for a table without exactly one trailing TableEnd.
var ErrUnterminatedTable = errors.New("table is not terminated by exactly one end marker")

// Entry is one register write or directive.
type Entry struct {
	Addr uint16 `json:"addr" yaml:"addr" mapstructure:"addr"`
	Val  uint16 `json:"val" yaml:"val" mapstructure:"val"`
}

// Wait returns a delay entry.
func Wait(ms uint16) Entry {
	return Entry{Addr: WaitMS, Val: ms}
}

// End returns the terminator entry.
func End() Entry {
	return Entry{Addr: TableEnd}
}

// IsWrite reports whether the entry is a real register write.
func (e Entry) IsWrite() bool {
	return e.Addr != WaitMS && e.Addr != TableEnd
}

func (e Entry) String() string {
	switch e.Addr {
	case WaitMS:
		return fmt.Sprintf("wait %dms", e.Val)
	case TableEnd:
		return "end"
	default:
		return fmt.Sprintf("%#06x <- %#06x", e.Addr, e.Val)
	}
}

// Table is an ordered, terminated list of entries. Tables are shared read-only data.
type Table []Entry

// Validate checks that the table holds exactly one TableEnd and that it is the last entry.
func (t Table) Validate() error {
	ends := lo.CountBy(t, func(e Entry) bool { return e.Addr == TableEnd })
	if ends != 1 || t[len(t)-1].Addr != TableEnd {
		return errors.Wrapf(ErrUnterminatedTable, "%d entries, %d end markers", len(t), ends)
	}
	return nil
}

// Writes returns the register writes in order, without waits or the terminator.
func (t Table) Writes() []Entry {
	return lo.Filter(t, func(e Entry, _ int) bool { return e.IsWrite() })
}

// Delay returns the sum of all wait entries in milliseconds.
func (t Table) Delay() int {
	return lo.SumBy(t, func(e Entry) int {
		if e.Addr == WaitMS {
			return int(e.Val)
		}
		return 0
	})
}

// Dump renders the table one entry per line, with encoded payloads when enc is not nil.
func (t Table) Dump(enc Encoder) string {
	var sb strings.Builder
	for i, e := range t {
		fmt.Fprintf(&sb, "%3d  %s", i, e)
		if enc != nil && e.IsWrite() {
			fmt.Fprintf(&sb, "  [% x]", enc(e))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
