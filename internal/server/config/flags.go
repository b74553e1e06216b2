package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophtodo/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-m string     gRPC health bind address
//	-k string     store backend: memory, postgres, dynamodb, s3
//	-d string     PostgreSQL DSN
//	-t string     todo table name
//	-b string     S3 bucket
//	-g string     AWS region
//	-e string     AWS endpoint override
//	-w string     scheduler backend: local, eventbridge
//	-q string     aging queue URL
//	-y duration   aging delay (e.g., "1m")
//	-s string     JWT HMAC secret key
//	-l string     log backend: slog, zap
//
// os.Args is filtered with flagx.FilterArgs first, so unrelated flags (such
// as -c) never reach this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-k", "-d", "-t", "-b", "-g", "-e", "-w", "-q", "-y", "-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.HealthAddr, "m", config.HealthAddr, "address and port to run gRPC health server")
	fs.StringVar(&config.StoreBackend, "k", config.StoreBackend, "store backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.TableName, "t", config.TableName, "todo table name")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSEndpoint, "e", config.AWSEndpoint, "AWS endpoint override")
	fs.StringVar(&config.SchedulerBackend, "w", config.SchedulerBackend, "scheduler backend")
	fs.StringVar(&config.QueueURL, "q", config.QueueURL, "aging queue URL")
	fs.DurationVar(&config.AgingDelay, "y", config.AgingDelay, "aging delay")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
