package keysource

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the settings blob from a local file. It is meant for
// development and tests against a locally minted key pair.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("keysource: read %s: %w", f.Path, err)
	}

	key, err := PEMFromConfig(data)
	if err != nil {
		return "", fmt.Errorf("keysource: %s: %w", f.Path, err)
	}
	return key, nil
}
