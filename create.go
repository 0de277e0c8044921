package east

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultTemplate scaffolds new migrations when the adapter has no template
// file.
const DefaultTemplate = `-- +migrate up


-- +migrate down

`

// Templater supplies the template for new migrations. Every Adapter is a
// Templater.
type Templater interface {
	TemplatePath() string
}

// Create scaffolds a new migration for label from the adapter's template and
// returns its path. An empty TemplatePath selects DefaultTemplate. The
// migrations directory is created when missing.
func Create(c *Codec, t Templater, label string) (string, error) {
	name, err := c.Generate(label)
	if err != nil {
		return "", errors.Wrap(err, "generate name")
	}
	pth := c.PathFor(name)

	var src io.Reader = strings.NewReader(DefaultTemplate)
	if tpl := t.TemplatePath(); tpl != "" {
		fi, err := os.Open(tpl)
		if err != nil {
			return "", errors.Wrap(err, "open template")
		}
		defer fi.Close()
		src = fi
	}

	if err = os.MkdirAll(filepath.Dir(pth), 0o755); err != nil {
		return "", errors.Wrap(err, "create migrations dir")
	}
	out, err := os.OpenFile(pth, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create migration")
	}
	if _, err = io.Copy(out, src); err != nil {
		out.Close()
		return "", errors.Wrap(err, "copy template")
	}
	if err = out.Close(); err != nil {
		return "", errors.Wrap(err, "close migration")
	}
	return pth, nil
}
