package pantrypal

import (
	"github.com/davecgh/go-spew/spew"
)

// Sdump renders v with go-spew, for log attributes.
func Sdump(v ...any) string {
	return spew.Sdump(v...)
}
