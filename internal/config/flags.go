package config

import (
	"flag"
	"io"

	"github.com/guardian/panda-go/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-g string     gRPC bind address; empty disables gRPC
//	-n string     cookie name
//	-b string     S3 bucket
//	-r string     S3 region
//	-k string     S3 key of the settings file
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000")
//	-u string     S3 access key id
//	-p string     S3 secret access key
//	-f string     local settings file, replaces S3
//	-t duration   public key cache TTL (e.g., "1m")
//	-v bool       require guardian.co.uk users with multifactor
//	-l string     log level
//
// Unknown arguments are filtered out first with flagx.FilterArgs so other
// components (the -c config flag) can share the command line.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args,
		[]string{"-a", "-g", "-n", "-b", "-r", "-k", "-e", "-u", "-p", "-f", "-t", "-v", "-l"},
		"-v")

	fs := flag.NewFlagSet("panda", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP bind address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC bind address")
	fs.StringVar(&config.CookieName, "n", config.CookieName, "cookie name")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3KeyFile, "k", config.S3KeyFile, "S3 settings key")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKeyID, "u", config.S3AccessKeyID, "S3 access key id")
	fs.StringVar(&config.S3SecretAccessKey, "p", config.S3SecretAccessKey, "S3 secret access key")
	fs.StringVar(&config.PublicKeyFile, "f", config.PublicKeyFile, "local settings file")
	fs.DurationVar(&config.KeyCacheTTL, "t", config.KeyCacheTTL, "public key cache TTL")
	fs.BoolVar(&config.RequireGuardianUser, "v", config.RequireGuardianUser, "require guardian users with multifactor")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
