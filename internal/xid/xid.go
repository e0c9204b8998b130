package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random document id. A non-empty prefix is prepended with "-".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
