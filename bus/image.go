package bus

import (
	"github.com/spf13/afero"
)

// LoadImage reads a binary file and writes its bytes into the store
// starting at base.
func LoadImage(fs afero.Fs, path string, store *ByteStore, base uint64) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}

	return store.Write(base, data)
}

// DumpImage writes n bytes of the store, starting at base, into a binary
// file. Bytes that have never been written dump as zero.
func DumpImage(
	fs afero.Fs,
	path string,
	store *ByteStore,
	base, n uint64,
) error {
	data, err := store.Read(base, n)
	if err != nil {
		return err
	}

	return afero.WriteFile(fs, path, data, 0644)
}
