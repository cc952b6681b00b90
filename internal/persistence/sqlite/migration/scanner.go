package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scan reads every *.sql file at the root of fsys and returns them ordered by
// version. Files that do not follow the naming convention are rejected.
func Scan(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m, err := parseFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		if other, ok := seen[m.Version]; ok {
			return nil, newMigrationError(m.Version, m.FileName, "scan",
				fmt.Errorf("%w: also defined in %s", ErrDuplicateVersion, other))
		}
		seen[m.Version] = m.FileName
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func parseFile(fsys fs.FS, name string) (Migration, error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return Migration{}, newMigrationError(0, name, "validate filename",
			fmt.Errorf("%w: expected {version}_{description}.sql", ErrInvalidMigrationFile))
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil || version <= 0 {
		return Migration{}, newMigrationError(0, name, "validate filename",
			fmt.Errorf("%w: version %q must be a positive number", ErrInvalidMigrationFile, matches[1]))
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Migration{}, newMigrationError(version, name, "read file", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return Migration{}, newMigrationError(version, name, "read file",
			fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile))
	}

	sum := sha256.Sum256(content)
	return Migration{
		Version:     version,
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         string(content),
		FileName:    name,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// splitStatements breaks a script into statements, dropping comment-only lines.
func splitStatements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
