package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/danmuck/nlprobe/internal/config"
)

const defaultConfigPath = "cmd/nlprobe/config.toml"

func main() {
	kind := flag.String("kind", "nlprobe", "config kind: nlprobe")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to "+defaultConfigPath+")")
	show := flag.Bool("show", false, "with -validate, print the effective settings as TOML")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultConfigPath
		}
		run, err := config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
		if *show {
			text, err := config.Render(run.Probe())
			if err != nil {
				log.Fatal(err)
			}
			fmt.Print(text)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultConfigPath
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
