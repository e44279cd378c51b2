// Package main issues an operator bearer token for the autohide MCP endpoint.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/autohidehost/internal/platform/config"
	"github.com/louisbranch/autohidehost/internal/tools/operatortoken"
)

func main() {
	cfg, err := operatortoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := operatortoken.Run(cfg, os.Stdout, nil, nil); err != nil {
		config.Exitf("issue operator token: %v", err)
	}
}
