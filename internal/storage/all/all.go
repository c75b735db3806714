// Package all links every storage backend into the binary.
package all

import (
	_ "mlbstats/internal/storage/postgres"
)
