package main

import (
	"os"

	"github.com/saludtotal/rips-app/log"
	"github.com/saludtotal/rips-app/ripsapp/ripscli"
)

func main() {
	app := ripscli.GetApp()
	if err := app.Run(os.Args); err != nil {
		log.API.Fatal(err)
	}
}
