package main

import (
	"fmt"
	"os"

	"github.com/unkn0wn-root/swrcache/internal/cli"
)

func main() {
	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "swrcached:", err)
		os.Exit(1)
	}
}
