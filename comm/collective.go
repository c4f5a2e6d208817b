package comm

import "fmt"

// AllToAllV performs a variable-count all-to-all exchange within the
// group. Rank i sends send[sendDispls[j] : sendDispls[j]+sendCounts[j]]
// to rank j and receives rank j's segment into
// recv[recvDispls[j] : recvDispls[j]+recvCounts[j]]. Count and
// displacement tables must agree pairwise across the group.
func AllToAllV[T any](c *Comm, send []T, sendCounts, sendDispls []int, recv []T, recvCounts, recvDispls []int) error {
	n := c.Size()
	if len(sendCounts) != n || len(sendDispls) != n {
		return fmt.Errorf("comm: send table length %d/%d does not match group size %d",
			len(sendCounts), len(sendDispls), n)
	}
	if len(recvCounts) != n || len(recvDispls) != n {
		return fmt.Errorf("comm: recv table length %d/%d does not match group size %d",
			len(recvCounts), len(recvDispls), n)
	}
	for peer := 0; peer < n; peer++ {
		lo, hi := sendDispls[peer], sendDispls[peer]+sendCounts[peer]
		if lo < 0 || hi > len(send) {
			return fmt.Errorf("comm: send segment [%d:%d] for peer %d exceeds buffer length %d",
				lo, hi, peer, len(send))
		}
		c.send(peer, cloneSegment(send[lo:hi]))
	}
	for peer := 0; peer < n; peer++ {
		seg, ok := c.recv(peer).([]T)
		if !ok {
			return fmt.Errorf("comm: type mismatch in exchange with peer %d", peer)
		}
		if len(seg) != recvCounts[peer] {
			return fmt.Errorf("comm: peer %d sent %d elements, expected %d",
				peer, len(seg), recvCounts[peer])
		}
		copy(recv[recvDispls[peer]:], seg)
	}
	return nil
}

// GatherV collects variable-length contributions on root. Every rank
// sends its whole send slice; root places rank j's contribution at
// recv[displs[j] : displs[j]+counts[j]]. Only root needs recv, counts
// and displs; other ranks may pass nil.
func GatherV[T any](c *Comm, send []T, recv []T, counts, displs []int, root int) error {
	c.send(root, cloneSegment(send))
	if c.Rank() != root {
		return nil
	}
	n := c.Size()
	if len(counts) != n || len(displs) != n {
		return fmt.Errorf("comm: gather table length %d/%d does not match group size %d",
			len(counts), len(displs), n)
	}
	for peer := 0; peer < n; peer++ {
		seg, ok := c.recv(peer).([]T)
		if !ok {
			return fmt.Errorf("comm: type mismatch in gather from peer %d", peer)
		}
		if len(seg) != counts[peer] {
			return fmt.Errorf("comm: peer %d sent %d elements, expected %d",
				peer, len(seg), counts[peer])
		}
		copy(recv[displs[peer]:], seg)
	}
	return nil
}

// ScatterV distributes variable-length segments from root. Root sends
// send[displs[j] : displs[j]+counts[j]] to rank j; every rank receives
// its segment into recv, whose length must equal its count. Only root
// needs send, counts and displs.
func ScatterV[T any](c *Comm, send []T, counts, displs []int, recv []T, root int) error {
	if c.Rank() == root {
		n := c.Size()
		if len(counts) != n || len(displs) != n {
			return fmt.Errorf("comm: scatter table length %d/%d does not match group size %d",
				len(counts), len(displs), n)
		}
		for peer := 0; peer < n; peer++ {
			lo, hi := displs[peer], displs[peer]+counts[peer]
			if lo < 0 || hi > len(send) {
				return fmt.Errorf("comm: scatter segment [%d:%d] for peer %d exceeds buffer length %d",
					lo, hi, peer, len(send))
			}
			c.send(peer, cloneSegment(send[lo:hi]))
		}
	}
	seg, ok := c.recv(root).([]T)
	if !ok {
		return fmt.Errorf("comm: type mismatch in scatter from root %d", root)
	}
	if len(seg) != len(recv) {
		return fmt.Errorf("comm: root sent %d elements, receive buffer holds %d", len(seg), len(recv))
	}
	copy(recv, seg)
	return nil
}

// Bcast broadcasts buf from root to every rank of the group. All
// ranks must pass buffers of equal length.
func Bcast[T any](c *Comm, buf []T, root int) error {
	if c.Rank() == root {
		for peer := 0; peer < c.Size(); peer++ {
			c.send(peer, cloneSegment(buf))
		}
	}
	seg, ok := c.recv(root).([]T)
	if !ok {
		return fmt.Errorf("comm: type mismatch in broadcast from root %d", root)
	}
	if len(seg) != len(buf) {
		return fmt.Errorf("comm: root broadcast %d elements, buffer holds %d", len(seg), len(buf))
	}
	copy(buf, seg)
	return nil
}

// Gather collects one value per rank on root, ordered by rank. The
// result slice is non-nil only on root.
func Gather[T any](c *Comm, v T, root int) ([]T, error) {
	c.send(root, []T{v})
	if c.Rank() != root {
		return nil, nil
	}
	out := make([]T, c.Size())
	for peer := 0; peer < c.Size(); peer++ {
		seg, ok := c.recv(peer).([]T)
		if !ok || len(seg) != 1 {
			return nil, fmt.Errorf("comm: malformed contribution from peer %d", peer)
		}
		out[peer] = seg[0]
	}
	return out, nil
}

// AllGather collects one value per rank on every rank, ordered by
// rank.
func AllGather[T any](c *Comm, v T) ([]T, error) {
	for peer := 0; peer < c.Size(); peer++ {
		c.send(peer, []T{v})
	}
	out := make([]T, c.Size())
	for peer := 0; peer < c.Size(); peer++ {
		seg, ok := c.recv(peer).([]T)
		if !ok || len(seg) != 1 {
			return nil, fmt.Errorf("comm: malformed contribution from peer %d", peer)
		}
		out[peer] = seg[0]
	}
	return out, nil
}

// Reduce folds one value per rank into a single result on root using
// op, applied in rank order. Non-root ranks receive the zero value.
func Reduce[T any](c *Comm, v T, op func(T, T) T, root int) (T, error) {
	vals, err := Gather(c, v, root)
	if err != nil || c.Rank() != root {
		var zero T
		return zero, err
	}
	acc := vals[0]
	for _, x := range vals[1:] {
		acc = op(acc, x)
	}
	return acc, nil
}

// AllReduce folds one value per rank into the same result on every
// rank, applying op in rank order.
func AllReduce[T any](c *Comm, v T, op func(T, T) T) (T, error) {
	vals, err := AllGather(c, v)
	if err != nil {
		var zero T
		return zero, err
	}
	acc := vals[0]
	for _, x := range vals[1:] {
		acc = op(acc, x)
	}
	return acc, nil
}

// cloneSegment copies a slice before it enters a mailbox so the
// sender may reuse its buffer immediately after the call.
func cloneSegment[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
