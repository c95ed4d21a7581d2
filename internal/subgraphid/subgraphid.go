// Package subgraphid implements the bit-exact conversions between the two
// wire representations of a subgraph's content address: the base58 IPFS
// form ("Qm...") used by graph-node and the 32-byte hex form ("0x...") used
// by the indexer-agent GraphQL API.
package subgraphid

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// multihashPrefix is the two-byte multihash header (sha2-256, 32 bytes) that
// every IPFS v0 CID carries ahead of its 32-byte digest.
var multihashPrefix = []byte{0x12, 0x20}

// ID is the 32-byte digest of a subgraph deployment, held without the
// multihash prefix or the "0x" marker so that equality and map keys work
// the same regardless of which wire form the value arrived in.
type ID [32]byte

// ParseBase58 decodes a 46-character "Qm..." IPFS hash into an ID.
func ParseBase58(s string) (ID, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("subgraphid: invalid base58 %q: %w", s, err)
	}
	if len(decoded) != len(multihashPrefix)+32 {
		return ID{}, fmt.Errorf("subgraphid: %q decodes to %d bytes, expected %d", s, len(decoded), len(multihashPrefix)+32)
	}
	var id ID
	copy(id[:], decoded[len(multihashPrefix):])
	return id, nil
}

// ParseHex decodes a "0x"-prefixed (or bare) 64-character hex digest into an ID.
func ParseHex(s string) (ID, error) {
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("subgraphid: invalid hex %q: %w", s, err)
	}
	if len(decoded) != 32 {
		return ID{}, fmt.Errorf("subgraphid: %q decodes to %d bytes, expected 32", s, len(decoded))
	}
	var id ID
	copy(id[:], decoded)
	return id, nil
}

// String returns the "0x"-prefixed 64-character lowercase hex form.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Base58 returns the 46-character "Qm..." IPFS form.
func (id ID) Base58() string {
	payload := make([]byte, 0, len(multihashPrefix)+32)
	payload = append(payload, multihashPrefix...)
	payload = append(payload, id[:]...)
	return base58.Encode(payload)
}
