package keys

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// FileName is the conventional name of the wrapped-keyset file within an
// account directory.
const FileName = "keyset.json"

// FilePermissions restricts the keyset file to its owner: it holds the
// account's entire wrapped key hierarchy.
const FilePermissions = 0600

// WriteFile persists wks as JSON under dir/FileName, creating dir if
// necessary.
func WriteFile(dir string, wks WrappedKeyset) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return secerr.New(secerr.KindIO, "keyset_write", err)
	}

	raw, err := json.MarshalIndent(wks.ToHexMap(), "", "  ")
	if err != nil {
		return secerr.New(secerr.KindInternal, "keyset_write", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, raw, FilePermissions); err != nil {
		return secerr.New(secerr.KindIO, "keyset_write", err)
	}
	return nil
}

// ReadFile loads a wrapped keyset previously written by WriteFile.
func ReadFile(dir string) (WrappedKeyset, error) {
	path := filepath.Join(dir, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrappedKeyset{}, secerr.New(secerr.KindIO, "keyset_read", err)
	}

	var hexMap map[string]string
	if err := json.Unmarshal(raw, &hexMap); err != nil {
		return WrappedKeyset{}, secerr.New(secerr.KindInternal, "keyset_read", err)
	}
	return WrappedKeysetFromHexMap(hexMap)
}

// FileExists reports whether a keyset file already exists under dir.
func FileExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
