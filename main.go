package main

import (
	"os"

	"github.com/QRMenu-Admin/QRMenu-Admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
