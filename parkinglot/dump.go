package parkinglot

import (
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Dump writes one line per parked goroutine: bucket index and channel.
// Each bucket is locked while it is read, so the listing is consistent per
// bucket but not across the whole table.
func Dump(w io.Writer) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	parked := 0
	for i := range table {
		b := &table[i]
		b.lock.Lock()
		for q := b.head; q != nil; q = q.next {
			buf.B = append(buf.B, "bucket "...)
			buf.B = strconv.AppendInt(buf.B, int64(i), 10)
			buf.B = append(buf.B, " channel "...)
			buf.B = strconv.AppendUint(buf.B, q.channel.Load(), 10)
			buf.B = append(buf.B, '\n')
			parked++
		}
		b.lock.Unlock()
	}
	buf.B = append(buf.B, "parked "...)
	buf.B = strconv.AppendInt(buf.B, int64(parked), 10)
	buf.B = append(buf.B, '\n')

	return buf.WriteTo(w)
}

// Parked counts goroutines currently parked on ch.
func Parked(ch Channel) int {
	b := lockBucket(ch)
	defer b.lock.Unlock()

	n := 0
	for q := b.head; q != nil; q = q.next {
		if Channel(q.channel.Load()) == ch {
			n++
		}
	}
	return n
}
