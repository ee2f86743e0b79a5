// Command pkgresolve drives the dependency resolution core from the
// command line: install (resolve and write the lockfile), check
// (frozen-mode dry run), and why (print a resolved pattern's requester
// chain).
package main

import "pkgresolve/internal/cli"

func main() {
	cli.Execute()
}
