// Command runesrv serves an Unknown Runes binary image over TCP, running
// one VM instance per connection.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/unknownrunes/rune-vm/config"
	"github.com/unknownrunes/rune-vm/loader"
	"github.com/unknownrunes/rune-vm/server"
	"github.com/unknownrunes/rune-vm/vm"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file (default: platform config dir)")
		host       = flag.String("host", "", "override the listen host")
		port       = flag.Int("port", 0, "override the listen port (0: use config default)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: runesrv <image> [--config <path>] [--host H] [--port P]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// flag.Parse stops at the first non-flag argument; parse the rest again
	// so that options may also follow the image path.
	args := flag.Args()
	if len(args) > 1 {
		first := args[0]
		_ = flag.CommandLine.Parse(args[1:])
		args = append([]string{first}, flag.Args()...)
	}

	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imagePath := args[0]

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "runesrv: loading config: %v\n", err)
		os.Exit(1)
	}

	image, err := loader.ReadImage(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runesrv: %v\n", err)
		os.Exit(1)
	}

	srv := &server.Server{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		MaxConnections: cfg.Server.MaxConnections,
		Program:        image,
		VMConfig: vm.Config{
			MemSize:         cfg.Execution.MemSize,
			MaxInstructions: cfg.Execution.MaxInstructions,
			OSExecTimeout:   cfg.OSExecTimeout(),
			AllowOSExec:     cfg.Execution.AllowOSExec,
		},
	}
	if *host != "" {
		srv.Host = *host
	}
	if *port != 0 {
		srv.Port = *port
	}

	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "runesrv: %v\n", err)
		os.Exit(1)
	}
}
