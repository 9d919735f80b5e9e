package dashboard

import "io"

// Renderer is the template renderer contract the controller needs; the
// go-template renderer satisfies it.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}
