// Command admin: операторская утилита: создание администраторов и модерация без HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/linemk/tribal-market/internal/app"
	"github.com/linemk/tribal-market/internal/config"
	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/lib/logger"
)

// operations то, что CLI вызывает у сервисов
type operations interface {
	CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error)
	VerifyArtist(ctx context.Context, artistID int64, verified bool) (*models.Artist, error)
	VerifyArtwork(ctx context.Context, artworkID int64, verified bool) (*models.Artwork, error)
}

// opener поднимает зависимости по пути к конфигу; close освобождает их
type opener func(configPath string) (ops operations, close func(), err error)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

type appOperations struct {
	*app.App
}

func (o appOperations) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	return o.AuthService.CreateAdmin(ctx, email, password, name)
}

func (o appOperations) VerifyArtist(ctx context.Context, artistID int64, verified bool) (*models.Artist, error) {
	return o.Services.Admin.VerifyArtist(ctx, artistID, verified)
}

func (o appOperations) VerifyArtwork(ctx context.Context, artworkID int64, verified bool) (*models.Artwork, error) {
	return o.Services.Admin.VerifyArtwork(ctx, artworkID, verified)
}

func openApp(configPath string) (operations, func(), error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		return nil, nil, errors.New("config path is not set: use --config or CONFIG_PATH")
	}
	cfg, err := config.LoadByPath(configPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config")
	}

	log := logger.SetupLogger(cfg.Env)
	application, err := app.NewApp(log, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize app")
	}
	return appOperations{application}, application.Close, nil
}

func newRootCmd(open opener) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Operator tool for the tribal art marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default $CONFIG_PATH)")

	// withOps открывает приложение только на время команды
	withOps := func(run func(ctx context.Context, ops operations, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ops, closeFn, err := open(configPath)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			return run(cmd.Context(), ops, cmd.OutOrStdout(), args)
		}
	}

	rootCmd.AddCommand(createAdminCmd(withOps))
	rootCmd.AddCommand(verifyCmd("verify-artist", "Approve or revoke an artist profile", withOps,
		func(ctx context.Context, ops operations, id int64, verified bool) (string, error) {
			artist, err := ops.VerifyArtist(ctx, id, verified)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("artist %d (%s)", artist.ID, artist.Name), nil
		}))
	rootCmd.AddCommand(verifyCmd("verify-artwork", "Approve or revoke an artwork listing", withOps,
		func(ctx context.Context, ops operations, id int64, verified bool) (string, error) {
			artwork, err := ops.VerifyArtwork(ctx, id, verified)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("artwork %d %q", artwork.ID, artwork.Title), nil
		}))

	return rootCmd
}

type runner = func(run func(ctx context.Context, ops operations, out io.Writer, args []string) error) func(*cobra.Command, []string) error

func createAdminCmd(withOps runner) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: withOps(func(ctx context.Context, ops operations, out io.Writer, _ []string) error {
			user, err := ops.CreateAdmin(ctx, email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s admin %s created (id %d)\n", color.GreenString("ok"), user.Email, user.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password, at least 8 characters")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func verifyCmd(use, short string, withOps runner,
	apply func(ctx context.Context, ops operations, id int64, verified bool) (string, error)) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withOps(func(ctx context.Context, ops operations, out io.Writer, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return errors.Errorf("invalid id %q", args[0])
			}
			what, err := apply(ctx, ops, id, !revoke)
			if err != nil {
				return err
			}
			state := color.GreenString("verified")
			if revoke {
				state = color.YellowString("unverified")
			}
			fmt.Fprintf(out, "%s is now %s\n", what, state)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove verification instead of granting it")
	return cmd
}
