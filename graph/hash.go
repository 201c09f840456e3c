package graph

import (
	"github.com/minio/highwayhash"
)

var key = []byte("0123456789ABCDEF0123456789ABCDEF")

// Fingerprint computes a stable structural hash of the graph over its
// sorted node ids and edges. Two graphs with identical structure hash
// identically, which makes the fingerprint usable as a cache key and as a
// cheap no-mutation check.
func (g *Graph) Fingerprint() (uint64, error) {
	hash, err := highwayhash.New64(key)
	if err != nil {
		return 0, err
	}
	for _, id := range g.NodeIDs() {
		if _, err = hash.Write([]byte(id)); err != nil {
			return 0, err
		}
		if _, err = hash.Write([]byte{0}); err != nil {
			return 0, err
		}
	}
	for _, edge := range g.Edges() {
		if _, err = hash.Write([]byte(edge.Src + ">" + edge.Dst + "@" + edge.Kind.String())); err != nil {
			return 0, err
		}
		if _, err = hash.Write([]byte{0}); err != nil {
			return 0, err
		}
	}
	return hash.Sum64(), nil
}
