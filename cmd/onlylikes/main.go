package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "onlylikes",
		Usage: "hide negative comments on your own posts",
		Commands: []*cli.Command{
			{
				Name:      "filter",
				Usage:     "filter the comments of a saved page",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "saved page HTML", Required: true},
					&cli.StringFlag{Name: "url", Usage: "address the page was saved from", Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "where to write the filtered HTML, - for stdout", Value: "-"},
					&cli.StringFlag{Name: "transport", Usage: "background hop: memory or kafka", Value: transportMemory},
					&cli.BoolFlag{Name: "veil", Usage: "hide each batch while it is being scored"},
					&cli.BoolFlag{Name: "watch", Usage: "after filtering, insert HTML fragments read from stdin, one per line, and filter the new comments"},
					&cli.StringFlag{Name: "insert-into", Usage: "selector of the element that receives fragments in --watch mode"},
				},
				Action: FilterAction,
			},
			{
				Name:  "settings",
				Usage: "read or change the stored settings",
				Subcommands: []*cli.Command{
					{
						Name:   "get",
						Usage:  "print the current settings",
						Action: SettingsGetAction,
					},
					{
						Name:  "set",
						Usage: "change one or more settings",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "provider", Usage: "none, openai, anthropic or vader"},
							&cli.StringFlag{Name: "api-key", Usage: "provider credential", EnvVars: []string{"ONLYLIKES_API_KEY"}},
							&cli.StringFlag{Name: "threshold", Usage: "aggressive, cautious or default"},
						},
						Action: SettingsSetAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("[Main] Command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
