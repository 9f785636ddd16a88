package ports

import (
	"io"

	"github.com/aretw0/probe/pkg/domain"
)

// Renderer consumes an analysed tree, pulling children lazily.
type Renderer interface {
	Render(w io.Writer, root *domain.Node) error
}
