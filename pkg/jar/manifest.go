package jar

import (
	"bufio"
	"bytes"
	"strings"
)

// ManifestPath is the location of the manifest inside a JAR.
const ManifestPath = "META-INF/MANIFEST.MF"

// Manifest holds the main-section attributes reported by jarfang.
type Manifest struct {
	MainClass             string `json:"mainClass,omitempty"             yaml:"mainClass,omitempty"`
	ImplementationTitle   string `json:"implementationTitle,omitempty"   yaml:"implementationTitle,omitempty"`
	ImplementationVersion string `json:"implementationVersion,omitempty" yaml:"implementationVersion,omitempty"`
	CreatedBy             string `json:"createdBy,omitempty"             yaml:"createdBy,omitempty"`
}

// IsZero reports whether no attribute was found.
func (m Manifest) IsZero() bool {
	return m == Manifest{}
}

// ParseManifest reads the main section of a manifest. The single space after
// the colon is dropped and the rest of the value is kept as written. Lines
// starting with a single space continue the previous value. Parsing stops at
// the first blank line, where per-entry sections begin.
func ParseManifest(data []byte) Manifest {
	attrs := make(map[string]string)

	var lastKey string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if line == "" {
			break
		}

		if strings.HasPrefix(line, " ") {
			if lastKey != "" {
				attrs[lastKey] += line[1:]
			}

			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			lastKey = ""

			continue
		}

		lastKey = strings.ToLower(strings.TrimSpace(key))
		attrs[lastKey] = strings.TrimPrefix(value, " ")
	}

	return Manifest{
		MainClass:             attrs["main-class"],
		ImplementationTitle:   attrs["implementation-title"],
		ImplementationVersion: attrs["implementation-version"],
		CreatedBy:             attrs["created-by"],
	}
}
