package config

import (
	"flag"
	"os"

	"github.com/modhost/backend/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-k string   storage kind: local, json, sqlite, postgres
//	-d string   data directory for file-backed storage
//	-q string   sqlite database path (or ":memory:")
//	-H string   postgres host
//	-P int      postgres port
//	-U string   postgres user
//	-W string   postgres password
//	-D string   postgres database name
//	-S string   postgres sslmode
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-q", "-H", "-P", "-U", "-W", "-D", "-S"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.StorageKind, "k", config.StorageKind, "storage kind (local, json, sqlite, postgres)")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.SQLitePath, "q", config.SQLitePath, "sqlite database path")
	fs.StringVar(&config.PostgresHost, "H", config.PostgresHost, "postgres host")
	fs.IntVar(&config.PostgresPort, "P", config.PostgresPort, "postgres port")
	fs.StringVar(&config.PostgresUser, "U", config.PostgresUser, "postgres user")
	fs.StringVar(&config.PostgresPassword, "W", config.PostgresPassword, "postgres password")
	fs.StringVar(&config.PostgresDatabase, "D", config.PostgresDatabase, "postgres database")
	fs.StringVar(&config.PostgresSSLMode, "S", config.PostgresSSLMode, "postgres sslmode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
