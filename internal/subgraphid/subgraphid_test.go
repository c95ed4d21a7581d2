package subgraphid

import "testing"

func TestRoundTripFromSpecExample(t *testing.T) {
	const ipfs = "Qmaz1R8vcv9v3gUfksqiS9JUz7K9G8S5By3JYn8kTiiP5K"
	const wantHex = "0xbbde25a2c85f55b53b7698b9476610c3d1202d88870e66502ab0076b7218f98a"

	id, err := ParseBase58(ipfs)
	if err != nil {
		t.Fatalf("ParseBase58(%q): %v", ipfs, err)
	}
	if got := id.String(); got != wantHex {
		t.Fatalf("String() = %q, want %q", got, wantHex)
	}

	back, err := ParseHex(id.String())
	if err != nil {
		t.Fatalf("ParseHex(%q): %v", id.String(), err)
	}
	if back != id {
		t.Fatalf("round trip mismatch: %v != %v", back, id)
	}
	if got := back.Base58(); got != ipfs {
		t.Fatalf("Base58() = %q, want %q", got, ipfs)
	}
}

func TestRoundTripManyHashes(t *testing.T) {
	hashes := []string{
		"Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH",
		"QmNY7gDNXHECV6CkYvqgkyUypNahxBQjF9rpE8sJMzazM3",
	}
	for _, h := range hashes {
		id, err := ParseBase58(h)
		if err != nil {
			t.Fatalf("ParseBase58(%q): %v", h, err)
		}
		if got := id.Base58(); got != h {
			t.Fatalf("round trip: ParseBase58(%q).Base58() = %q", h, got)
		}
		hexForm := id.String()
		id2, err := ParseHex(hexForm)
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", hexForm, err)
		}
		if id2 != id {
			t.Fatalf("ParseHex(String()) != original for %q", h)
		}
	}
}

func TestParseHexWithoutPrefix(t *testing.T) {
	id, err := ParseBase58("Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	if err != nil {
		t.Fatal(err)
	}
	bare := id.String()[2:]
	id2, err := ParseHex(bare)
	if err != nil {
		t.Fatalf("ParseHex(bare hex): %v", err)
	}
	if id2 != id {
		t.Fatalf("ParseHex without 0x prefix mismatch")
	}
}
