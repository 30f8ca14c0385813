package main

import (
	"flag"
	"log"
	"strings"

	"github.com/danmuck/llrpd/internal/config"
)

func main() {
	kind := flag.String("kind", "llrpd", "template kind: "+strings.Join(config.Kinds, "|"))
	output := flag.String("output", "config.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (%d readers)", *input, len(cfg.Readers))
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, *output)
}
