package east

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoDown is returned when reverting a migration without a down section.
var ErrNoDown = errors.New("migration has no down section")

var regexMarker = regexp.MustCompile(`(?i)^--\s*\+migrate\s+(up|down)\s*$`)

// SQLMigration is a parsed SQL definition file.
type SQLMigration struct {
	Name     string
	Up       []string
	Down     []string
	HasDown  bool
	Checksum string
}

// ParseSQL reads a definition split into sections by "-- +migrate up" and
// "-- +migrate down" markers. Each section is split into statements on ";".
func ParseSQL(name string, r io.Reader) (*SQLMigration, error) {
	byt, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read definition")
	}
	var up, down strings.Builder
	var section *strings.Builder
	var hasUp, hasDown bool
	scn := bufio.NewScanner(bytes.NewReader(byt))
	scn.Buffer(make([]byte, 0, 64*1024), len(byt)+1)
	for i := 1; scn.Scan(); i++ {
		line := scn.Text()
		if m := regexMarker.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			switch strings.ToLower(m[1]) {
			case "up":
				if hasUp {
					return nil, fmt.Errorf("line %d: duplicate up section", i)
				}
				hasUp, section = true, &up
			case "down":
				if hasDown {
					return nil, fmt.Errorf("line %d: duplicate down section", i)
				}
				hasDown, section = true, &down
			}
			continue
		}
		if section == nil {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			return nil, fmt.Errorf("line %d: statement outside of a section", i)
		}
		section.WriteString(line)
		section.WriteByte('\n')
	}
	if err = scn.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	if !hasUp {
		return nil, errors.New("missing up section")
	}
	return &SQLMigration{
		Name:     name,
		Up:       splitStatements(up.String()),
		Down:     splitStatements(down.String()),
		HasDown:  hasDown,
		Checksum: computeChecksum(byt),
	}, nil
}

// Statements returns the statements for the given direction.
func (m *SQLMigration) Statements(dir Direction) ([]string, error) {
	if dir == Apply {
		return m.Up, nil
	}
	if !m.HasDown {
		return nil, ErrNoDown
	}
	return m.Down, nil
}

func splitStatements(s string) []string {
	cmds := strings.Split(s, ";")
	filteredCmds := []string{}
	for _, cmd := range cmds {
		cmd = strings.TrimSpace(cmd)
		if len(cmd) > 0 && !onlyComments(cmd) {
			filteredCmds = append(filteredCmds, cmd)
		}
	}
	return filteredCmds
}

func onlyComments(cmd string) bool {
	for _, line := range strings.Split(cmd, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

func computeChecksum(byt []byte) string {
	return fmt.Sprintf("%x", md5.Sum(byt))
}
