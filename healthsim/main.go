package main

import (
	"os"

	"github.com/mark64oswald/healthsim-core/healthsim/healthsimcli"
	"github.com/mark64oswald/healthsim-core/log"
)

func main() {
	if err := healthsimcli.GetApp().Run(os.Args); err != nil {
		log.API.Fatal(err)
	}
}
