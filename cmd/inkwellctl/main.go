// Command inkwellctl administers an inkwell database.
//
// Usage:
//
//	inkwellctl [-d dsn] [-c config] migrate|register|users
//	inkwellctl [-c config] cover <image file>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/ctl"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/config"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/repomanager"
	"github.com/inkwell-blog/inkwell/internal/server/services"
)

// command returns the first argument naming a known subcommand and the
// arguments after it that are not flags.
func command(args []string) (string, []string) {
	for i, a := range args {
		if slices.Contains(ctl.Commands, a) {
			var rest []string
			for _, r := range args[i+1:] {
				if !strings.HasPrefix(r, "-") {
					rest = append(rest, r)
				}
			}
			return a, rest
		}
	}
	return "", nil
}

func main() {

	cmd, args := command(os.Args[1:])
	if cmd == "" {
		fmt.Fprintf(os.Stderr, "usage: inkwellctl [-d dsn] [-c config] %v\n", ctl.Commands)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, dialect, err := dbx.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if cmd != "migrate" {
		if err := rm.RunMigrations(ctx, db); err != nil {
			log.Fatalf("migrations error: %v", err)
		}
	}

	// the session opened by register is ended immediately, so any key will do
	identity := services.NewIdentityService(db, rm, []byte("inkwellctl"), cfg.SessionDuration)

	media := services.NewMediaService(policy.New(cfg.AdminUserID), cfg)

	app := ctl.NewApp(db, rm, identity, media, cfg.AdminUserID, os.Stdin, os.Stdout, int(os.Stdin.Fd()))
	if err := app.Run(ctx, cmd, args...); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}

}
