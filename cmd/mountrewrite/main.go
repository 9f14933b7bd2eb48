package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mountrewrite/cmd/mountrewrite/commands"
	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("mountrewrite"),
		kong.Description("Prefix site paths in compiled Elm package documentation with a mount point."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run(global, cli)
	cancel()
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
