package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-k", "-i", "-t", "-B", "-D",
	"-u", "-p", "-b", "-g", "-e", "-m", "-l", "-f",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN or "memory://"
//	-s string   token secret
//	-k string   password pepper
//	-i string   token issuer
//	-t int      session validity, minutes
//	-B string   blob backend: s3, badger or memory
//	-D string   blob directory for the badger backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-m int      max upload size, MiB
//	-l string   log level
//	-f string   log format: auto, text or json
//
// os.Args is filtered with flagx.FilterArgs first so that -c/-config and
// other foreign flags do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TokenSecret, "s", config.TokenSecret, "token secret")
	fs.StringVar(&config.PasswordPepper, "k", config.PasswordPepper, "password pepper")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")

	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity duration (in minutes)")

	fs.StringVar(&config.BlobBackend, "B", config.BlobBackend, "blob backend (s3, badger, memory)")
	fs.StringVar(&config.BlobDir, "D", config.BlobDir, "blob directory for the badger backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	maxUpload := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in MiB)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (auto, text, json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.MaxUploadSize = *maxUpload << 20
}
