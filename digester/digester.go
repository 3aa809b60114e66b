package digester

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// DigestBytes returns the SHA256 hex digest of content.
func DigestBytes(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}

// CalculateDigest computes the SHA256 hex digest of the file at
// path. Returns empty string with no error if the file does not
// exist.
func CalculateDigest(path string) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := os.Open(path) //nolint:gosec // path is caller-provided by design
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// VerifyDigest reports whether the file at path exists and holds
// exactly content.
func VerifyDigest(path string, content []byte) (bool, error) {
	const errCtx = "verifying digest"

	have, err := CalculateDigest(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return have == DigestBytes(content), nil
}

// WriteIfChanged writes content to path unless the file already
// holds identical bytes. It reports whether the file was written.
// Leaving an unchanged file alone preserves its modification time
// for incremental builds.
func WriteIfChanged(
	path string,
	content []byte,
	perm os.FileMode,
) (bool, error) {
	const errCtx = "writing file"

	same, err := VerifyDigest(path, content)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if same {
		return false, nil
	}

	if err := os.WriteFile(path, content, perm); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return true, nil
}
