package dashboard

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"

	template "github.com/goliatone/go-template"
)

const templatesRoot = "templates"

//go:embed templates/*.html
var embeddedTemplates embed.FS

// NewTemplateRenderer creates a go-template renderer over the embedded
// dashboard templates. Files in overrideDir replace embedded templates of
// the same name, so operators can restyle the page without a rebuild.
func NewTemplateRenderer(overrideDir ...string) (Renderer, error) {
	dir := ""
	if len(overrideDir) > 0 {
		dir = strings.TrimSpace(overrideDir[0])
	}
	return template.NewRenderer(
		template.WithFS(TemplatesFS(dir)),
		template.WithBaseDir(templatesRoot),
		template.WithExtension(".html"),
	)
}

// TemplatesFS returns the template tree with overrideDir layered on top of
// the embedded files. An empty overrideDir returns the embedded tree.
func TemplatesFS(overrideDir string) fs.FS {
	if overrideDir == "" {
		return embeddedTemplates
	}
	return templateOverlay{override: os.DirFS(overrideDir), base: embeddedTemplates}
}

// templateOverlay serves templates/<name> from override when present.
type templateOverlay struct {
	override fs.FS
	base     fs.FS
}

func (o templateOverlay) Open(name string) (fs.File, error) {
	if rel, ok := strings.CutPrefix(name, templatesRoot+"/"); ok && path.Dir(rel) == "." {
		file, err := o.override.Open(rel)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return o.base.Open(name)
}
