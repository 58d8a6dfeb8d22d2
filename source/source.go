package source

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/wippyai/redpkg/errors"
	"github.com/zeebo/blake3"
)

// ReadAll reads r to the end and removes the framing c.
func ReadAll(r io.Reader, c Compression) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, errors.Load("read input", err)
	}
	if len(data) > MaxSize {
		return nil, errors.Load("input exceeds maximum package size", nil)
	}
	return Decompress(data, c)
}

// ReadFile reads the file at path and removes the framing c.
func ReadFile(path string, c Compression) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Load("open "+path, err)
	}
	defer f.Close()
	return ReadAll(f, c)
}

// WriteFile frames data with c and writes it to path.
func WriteFile(path string, data []byte, c Compression) error {
	out, err := Compress(data, c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Load("write "+path, err)
	}
	return nil
}

// Fingerprint is a keyed BLAKE3 digest of decompressed package bytes.
type Fingerprint [32]byte

// fingerprintKey separates package fingerprints from other BLAKE3 uses.
var fingerprintKey = [32]byte{
	'r', 'e', 'd', 'p', 'k', 'g', '.', 'p', 'a', 'c', 'k', 'a', 'g', 'e', 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// FingerprintOf hashes data.
func FingerprintOf(data []byte) Fingerprint {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("source: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var fp Fingerprint
	copy(fp[:], hasher.Sum(nil))
	return fp
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
