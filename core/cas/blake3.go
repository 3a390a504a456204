package cas

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Fingerprint identifies a document by two independent hashes.
type Fingerprint struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Sum fingerprints data.
func Sum(data []byte) Fingerprint {
	return Fingerprint{SHA256: Hash(data), BLAKE3: Blake3Hash(data)}
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Key derives a lookup key from parts. Parts are length-prefixed, so
// ("ab", "c") and ("a", "bc") give different keys.
func Key(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// pointer is the structure stored in key pointer files.
type pointer struct {
	SHA256 string `json:"sha256"`
}

// Link records that key resolves to the blob with hash sha.
// Pointer files are stored at <root>/blobs/blake3/<first2>/<key>.json.
func (s *Store) Link(key, sha string) error {
	if !isValidHash(key) || !isValidHash(sha) {
		return ErrInvalidHash
	}

	data, err := json.Marshal(pointer{SHA256: sha})
	if err != nil {
		return fmt.Errorf("failed to marshal pointer: %w", err)
	}
	if err := writeAtomic(s.pathForKey(key), ".pointer-*", data); err != nil {
		return fmt.Errorf("failed to write pointer: %w", err)
	}
	return nil
}

// Lookup returns the blob hash linked to key, or ErrBlobNotFound.
func (s *Store) Lookup(key string) (string, error) {
	if !isValidHash(key) {
		return "", ErrInvalidHash
	}

	data, err := os.ReadFile(s.pathForKey(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlobNotFound
		}
		return "", fmt.Errorf("failed to read pointer: %w", err)
	}

	var p pointer
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("failed to parse pointer: %w", err)
	}
	return p.SHA256, nil
}

// PutKeyed stores data and links key to it.
func (s *Store) PutKeyed(key string, data []byte) (string, error) {
	sha, err := s.Put(data)
	if err != nil {
		return "", err
	}
	if err := s.Link(key, sha); err != nil {
		return "", err
	}
	return sha, nil
}

// GetKeyed returns the blob linked to key.
func (s *Store) GetKeyed(key string) ([]byte, error) {
	sha, err := s.Lookup(key)
	if err != nil {
		return nil, err
	}
	return s.Get(sha)
}

func (s *Store) pathForKey(key string) string {
	return filepath.Join(s.root, "blobs", "blake3", key[:2], key+".json")
}
