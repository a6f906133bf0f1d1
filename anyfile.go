package anyfile

import (
	"fmt"
	"os"

	"github.com/wippyai/anyfile/container"
)

// Extension is the conventional file suffix.
const Extension = ".any"

// ReadFile reads and parses the container at path.
func ReadFile(path string, opts ...container.Option) (*container.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := container.Deserialize(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// WriteFile serializes c to path, replacing any existing file. The size
// fields of c.Header are updated as a side effect.
func WriteFile(path string, c *container.Container) error {
	data, err := c.Serialize()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
