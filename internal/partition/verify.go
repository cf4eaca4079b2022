package partition

// Checksum is the closed-form sum of the ids 0..n-1, n(n-1)/2.
func Checksum(n int) int64 {
	if n <= 0 {
		return 0
	}
	nn := int64(n)
	return nn * (nn - 1) / 2
}

// Endpoints resolves the two node ids of a bond.
type Endpoints func(edgeID int) (a, b int)

// Verify checks gathered padded chunks, laid out worker after worker with
// chunkLen slots each, against the expected node and bond totals. Every id
// must appear exactly once, the id sums must match Checksum and every owned
// bond must reference existing nodes. ends may be nil to skip the last check.
func Verify(nNodes, nEdges, chunkLen int, nodeBuf, edgeBuf []int, ends Endpoints) error {
	if err := cover("node", nNodes, chunkLen, nodeBuf); err != nil {
		return err
	}
	if err := cover("edge", nEdges, chunkLen, edgeBuf); err != nil {
		return err
	}
	if ends == nil {
		return nil
	}
	for _, id := range edgeBuf {
		if id == Sentinel {
			continue
		}
		a, b := ends(id)
		if a < 0 || a >= nNodes || b < 0 || b >= nNodes {
			return &IntegrityError{Kind: "edge", ID: id, Reason: "references a node out of range"}
		}
	}
	return nil
}

func cover(kind string, total, chunkLen int, buf []int) error {
	if chunkLen <= 0 || len(buf)%chunkLen != 0 {
		return &IntegrityError{Kind: kind, ID: -1, Reason: "buffer is not a whole number of chunks"}
	}
	seen := make([]bool, total)
	var sum int64
	for start := 0; start < len(buf); start += chunkLen {
		for _, id := range Unpad(buf[start : start+chunkLen]) {
			if id < 0 || id >= total {
				return &IntegrityError{Kind: kind, ID: id, Reason: "id out of range"}
			}
			if seen[id] {
				return &IntegrityError{Kind: kind, ID: id, Reason: "assigned twice"}
			}
			seen[id] = true
			sum += int64(id)
		}
	}
	for id, ok := range seen {
		if !ok {
			return &IntegrityError{Kind: kind, ID: id, Reason: "unassigned"}
		}
	}
	if want := Checksum(total); sum != want {
		return &IntegrityError{Kind: kind, ID: -1, Reason: "checksum mismatch"}
	}
	return nil
}
