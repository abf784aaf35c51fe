// Public domain.

package main

import "github.com/soniakeys/encke/internal/prog"

func main() {
	prog.Main()
}
