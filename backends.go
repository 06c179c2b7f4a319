package rendering

// Built-in backends.
import (
	_ "github.com/gogpu/rendering/backend/safe"
	_ "github.com/gogpu/rendering/backend/software"
)
