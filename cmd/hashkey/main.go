// hashkey generates the Argon2id hash of the shared gate key, ready to
// paste into the server config file.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"

	"streamroom/auth"
)

func main() {
	var key string
	if len(os.Args) > 1 {
		key = os.Args[1]
	} else {
		color.Cyan.Print("gate key: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			color.Red.Printf("read failed: %v\n", err)
			os.Exit(1)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		color.Red.Println("key cannot be empty")
		os.Exit(1)
	}

	hash, err := auth.HashKey(key)
	if err != nil {
		color.Red.Printf("hashing failed: %v\n", err)
		os.Exit(1)
	}

	color.Green.Println("add to your config file:")
	fmt.Printf("key_hash = %q\n", hash)
}
