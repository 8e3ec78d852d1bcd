//go:build sqlite_vec && cgo

package vecstore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver so
	// SQLite-side distance functions are available to store users.
	vec.Auto()
}
