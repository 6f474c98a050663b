package securestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ReadJSON loads path into v. Encrypted files need secret; plaintext files are
// accepted only when secret is empty.
func ReadJSON(path, secret, purpose string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	payload := raw
	switch {
	case IsEncrypted(raw):
		payload, err = Decrypt(secret, purpose, raw)
		if err != nil {
			return err
		}
	case strings.TrimSpace(secret) != "":
		return ErrPlaintext
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}

// WriteJSON marshals v and writes it to path, encrypted when secret is set.
// The file is replaced through a temp file rename.
func WriteJSON(path, secret, purpose string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(secret) != "" {
		payload, err = Encrypt(secret, purpose, payload)
		if err != nil {
			return err
		}
	}
	return writeFileAtomic(path, payload)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
