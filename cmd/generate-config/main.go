package main

import (
	"flag"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/voicewarden/voicewarden/setup/config"
)

func main() {
	defaultsForCI := flag.Bool("ci", false, "Populate the configuration with sane defaults for use in CI")
	flag.Parse()

	cfg := &config.Warden{}
	cfg.Defaults(true)
	cfg.Logging = []config.LogrusHook{
		{
			Type:   "file",
			Level:  "info",
			Params: map[string]interface{}{"path": "/var/log/voicewarden"},
		},
	}
	if *defaultsForCI {
		cfg.Global.AccessToken = "ci-token"
		cfg.Global.JetStream.InMemory = true
		cfg.Logging = nil
	}

	j, err := yaml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(j))
}
