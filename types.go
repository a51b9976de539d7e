package fruit

import (
	"github.com/sammcvicker/fruit-sub000/internal/extract"
	"github.com/sammcvicker/fruit-sub000/internal/filter"
	"github.com/sammcvicker/fruit-sub000/internal/render"
)

// Public type aliases for internal types that appear in the Engine API.
// These are Go type aliases (=), so no conversion is needed.

type Metadata = extract.Metadata
type Todo = extract.Todo
type Entry = render.Entry
type Renderer = render.Renderer
type PathFilter = filter.PathFilter
