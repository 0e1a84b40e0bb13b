// Command dogfight_server runs the authoritative world, serves game clients
// over WebSocket and records matches.
//
//	dogfight_server [flags]             run the server
//	dogfight_server [flags] migrate DIR replay SQLite dumps into the configured backend
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OCAP2/dogfight/internal/config"
)

// ServerName names log files and the GELF facility.
const ServerName = "dogfight_server"

// BuildVersion is set with -ldflags at release time.
var BuildVersion = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet(ServerName, pflag.ContinueOnError)
	if err := config.BindFlags(fs); err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	configDir, _ := fs.GetString("config-dir")
	fileFound, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	switch cmd := fs.Arg(0); cmd {
	case "":
		return serve(fileFound)
	case "migrate":
		return migrate(fs.Arg(1))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig reads the config file. A missing file leaves the defaults in
// place.
func loadConfig(dir string) (bool, error) {
	err := config.Load(dir)
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &notFound):
		return false, nil
	default:
		return false, err
	}
}
