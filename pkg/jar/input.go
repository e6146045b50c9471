package jar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Input validation errors.
var (
	ErrInputNotFound = errors.New("input file does not exist")
	ErrInputNotFile  = errors.New("input path is not a file")
	ErrNotJar        = errors.New("input file must be a JAR file (.jar extension)")
)

const jarExtension = ".jar"

// ValidateInput checks that path names an existing regular file with a .jar
// extension (case-insensitive).
func ValidateInput(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrInputNotFound, path)
	}

	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrInputNotFile, path)
	}

	if !strings.HasSuffix(strings.ToLower(path), jarExtension) {
		return fmt.Errorf("%w: %s", ErrNotJar, path)
	}

	return nil
}
