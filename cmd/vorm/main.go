// vorm inspects databases through the vorm dialect layer.
//
//	vorm ping --config vorm.yaml
//	vorm columns users --config vorm.yaml
//	vorm preview --dialect postgres --table users --where "id=5" --limit 10
package main

import (
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
