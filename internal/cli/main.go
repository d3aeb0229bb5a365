package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thomiceli/gistfeed/internal/cache"
	"github.com/thomiceli/gistfeed/internal/config"
	"github.com/thomiceli/gistfeed/internal/db"
	"github.com/thomiceli/gistfeed/internal/github"
	"github.com/thomiceli/gistfeed/internal/queue"
	"github.com/thomiceli/gistfeed/internal/syncer"
	"github.com/thomiceli/gistfeed/internal/web"
	"github.com/urfave/cli/v2"
)

var CmdVersion = cli.Command{
	Name:  "version",
	Usage: "Print the version of Gistfeed",
	Action: func(c *cli.Context) error {
		fmt.Println("Gistfeed " + config.GistfeedVersion)
		return nil
	},
}

var CmdStart = cli.Command{
	Name:  "start",
	Usage: "Start Gistfeed server",
	Action: func(ctx *cli.Context) error {
		Initialize(ctx)

		s, q := newSyncer()
		q.Start(config.C.QueueWorkers, s.HandleTask)

		srv := web.NewServer(s)
		go srv.Start()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Info().Msg("Shutting down...")
		srv.Stop()
		q.Stop()
		return db.Close()
	},
}

var CmdSync = cli.Command{
	Name:  "sync",
	Usage: "Synchronously mirror one user's gists and exit",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "user",
			Aliases:  []string{"u"},
			Usage:    "GitHub username to sync",
			Required: true,
		},
	},
	Action: func(ctx *cli.Context) error {
		Initialize(ctx)

		s, _ := newSyncer()
		username := ctx.String("user")
		if err := s.SyncUser(username); err != nil {
			return err
		}

		gists, err := db.GetGistsForUser(username)
		if err != nil {
			return err
		}
		fmt.Printf("%d gists cached for user %s\n", len(gists), username)
		return db.Close()
	},
}

var ConfigFlag = cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to a config file in YAML format",
}

func App() error {
	app := cli.NewApp()
	app.Name = "Gistfeed"
	app.Usage = "A cache-backed mirror of GitHub users' gists."
	app.HelpName = "gistfeed"

	app.Commands = []*cli.Command{&CmdVersion, &CmdStart, &CmdSync}
	app.DefaultCommand = CmdStart.Name
	app.Flags = []cli.Flag{
		&ConfigFlag,
	}
	return app.Run(os.Args)
}

func Initialize(ctx *cli.Context) {
	fmt.Println("Gistfeed " + config.GistfeedVersion)

	if err := config.InitConfig(ctx.String("config")); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(filepath.Join(config.GetHomeDir()), 0755); err != nil {
		panic(err)
	}

	config.InitLog()

	homePath := config.GetHomeDir()
	log.Info().Msg("Data directory: " + homePath)

	if err := db.Setup(config.C.DBUri); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
}

// newSyncer wires the process-wide capabilities: the GitHub client, the
// in-memory cache/claim store, and the refresh queue. A missing token is a
// configuration error and stops startup before any request is made.
func newSyncer() (*syncer.Syncer, *queue.Queue) {
	store, err := cache.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize in memory store")
	}

	client, err := github.NewClient(config.C.GithubToken, config.C.GithubApiUrl,
		time.Duration(config.C.GithubTimeout)*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid GitHub API configuration")
	}

	q := queue.New(config.C.QueueSize, config.C.QueueMaxAttempts)
	return syncer.NewSyncer(client, store, store, q), q
}
