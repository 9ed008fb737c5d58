// Package main provides the Keepsake Go core entry point. The core compiles
// as a shared library for mobile (via cmd/mobile) or runs as the desktop
// companion server (via cmd/desktop); this binary reports the build.
package main

import "fmt"

// Version is set at build time.
var Version = "0.1.0"

func main() {
	fmt.Printf("Keepsake Core v%s\n", Version)
}
