package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"ideaforge/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "ideaforge",
		Usage:   "Turn news feeds into tagged articles and business ideas",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to config file (default ~/.config/ideaforge/config.yaml)", Sources: cli.EnvVars("IDEAFORGE_CONFIG")},
		},
		Commands: []*cli.Command{
			serveCommand(),
			fetchCommand(),
			tagCommand(),
			generateCommand(),
			auditCommand(),
			exportCommand(),
			listCommand("articles", "List stored articles", 20, listArticles),
			listCommand("tags", "List extracted tags", 50, listTags),
			listCommand("ideas", "List generated ideas", 20, listIdeas),
			mcpCommand(),
			initCommand(),
			serviceCommand(),
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					_, err := os.Stdout.WriteString(version.GetVersion() + "\n")
					return err
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
