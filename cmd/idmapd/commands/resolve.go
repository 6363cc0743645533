package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/idmapd/pkg/config"
	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/spf13/cobra"
)

var resolveTimeout time.Duration

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single identity",
	Long: `Resolve a single identity using the configured backend.

Examples:
  idmapd resolve user alice
  idmapd resolve uid 1000
  idmapd resolve principal alice@EXAMPLE.COM
  idmapd resolve group staff
  idmapd resolve gid 100`,
}

func init() {
	resolveCmd.PersistentFlags().DurationVar(&resolveTimeout, "timeout", 10*time.Second, "lookup timeout")

	resolveCmd.AddCommand(
		&cobra.Command{
			Use:   "user <name>",
			Short: "Resolve a username to uid and gid",
			Args:  cobra.ExactArgs(1),
			RunE: withResolver(func(ctx context.Context, r *idmap.Resolver, arg string) error {
				uid, gid, err := r.NameToIDs(ctx, arg)
				if err != nil {
					return err
				}
				fmt.Printf("uid=%d gid=%d\n", uid, gid)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "uid <uid>",
			Short: "Resolve a uid to a username",
			Args:  cobra.ExactArgs(1),
			RunE: withResolver(func(ctx context.Context, r *idmap.Resolver, arg string) error {
				uid, ok := idmap.ParseID(arg)
				if !ok {
					return fmt.Errorf("invalid uid %q", arg)
				}
				name, err := r.UIDToName(ctx, uid)
				if err != nil {
					return err
				}
				fmt.Println(name)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "principal <name@domain>",
			Short: "Resolve an authentication principal to uid and gid",
			Args:  cobra.ExactArgs(1),
			RunE: withResolver(func(ctx context.Context, r *idmap.Resolver, arg string) error {
				uid, gid, err := r.PrincipalToIDs(ctx, arg)
				if err != nil {
					return err
				}
				fmt.Printf("uid=%d gid=%d\n", uid, gid)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "group <name>",
			Short: "Resolve a group name to a gid",
			Args:  cobra.ExactArgs(1),
			RunE: withResolver(func(ctx context.Context, r *idmap.Resolver, arg string) error {
				gid, err := r.GroupToGID(ctx, arg)
				if err != nil {
					return err
				}
				fmt.Printf("gid=%d\n", gid)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "gid <gid>",
			Short: "Resolve a gid to a group name",
			Args:  cobra.ExactArgs(1),
			RunE: withResolver(func(ctx context.Context, r *idmap.Resolver, arg string) error {
				gid, ok := idmap.ParseID(arg)
				if !ok {
					return fmt.Errorf("invalid gid %q", arg)
				}
				name, err := r.GIDToGroup(ctx, gid)
				if err != nil {
					return err
				}
				fmt.Println(name)
				return nil
			}),
		},
	)
}

// withResolver loads configuration, builds a resolver and runs one
// lookup against it.
func withResolver(fn func(ctx context.Context, r *idmap.Resolver, arg string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		if err := initLogger(cfg); err != nil {
			return err
		}

		resolver, err := cfg.CreateResolver(nil)
		if err != nil {
			return err
		}
		defer resolver.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
		defer cancel()

		return fn(ctx, resolver, args[0])
	}
}
