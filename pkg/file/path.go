package file

import "os"

// WriteAtomic writes data to path via a temp file plus rename so readers
// never observe a partially written artifact.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
