// Package main is the bringupd command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/bringup/cli"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
