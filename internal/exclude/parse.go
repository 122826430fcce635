package exclude

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile reads exclusion patterns from a file and adds them to the
// matcher, one pattern per line. Blank lines and lines starting with
// '#' are skipped. A missing file is not an error.
func (m *Matcher) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := m.Add(line); err != nil {
			return fmt.Errorf("rules file %s line %d: %w", path, lineNum, err)
		}
	}
	return scanner.Err()
}

// defaultRules is the rules file written by WriteDefault. System paths
// (recycle bin, VCS metadata, swap files) need no entry here since the
// built-in denylist already covers them.
const defaultRules = `# Exclusion rules, one per line. Lines starting with # are comments.
#
# Patterns containing * or ? match file and directory names;
# anything else matches as a case-insensitive substring of the path.

# Temporary files
*.tmp
*.temp
*.log
*.bak
~*

# Cache directories
Temp/
Cache/
`

// WriteDefault creates a rules file with the default patterns at path,
// creating parent directories as needed. An existing file is left
// untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultRules), 0o644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	return nil
}
