// Command sdllctl frames and unframes byte streams from the command line.
//
//	printf 'hello' | sdllctl encode --crc > frame.bin
//	sdllctl decode --crc -o yaml < frame.bin
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
