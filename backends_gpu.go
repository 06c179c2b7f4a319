//go:build !nogpu

package rendering

import _ "github.com/gogpu/rendering/backend/gpu"
