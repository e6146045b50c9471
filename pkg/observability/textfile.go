package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile gathers g and writes it in Prometheus exposition format to
// path, creating parent directories as needed. The write is atomic.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create textfile dir: %w", err)
	}

	err = prometheus.WriteToTextfile(path, g)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
