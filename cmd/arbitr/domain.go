package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Manage domain ownership boundaries",
}

var domainRegisterFlags struct {
	session string
	replace bool
}

var domainRegisterCmd = &cobra.Command{
	Use:   "register NAME PATTERN...",
	Short: "Register a domain and the path patterns it owns",
	Long: `Register a domain and the path patterns it owns.

Patterns use gitignore-style globs: db/** owns everything under db/,
**/migrations owns any migrations directory, *.sql owns SQL files anywhere.
Registering an existing name fails unless --replace is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, domainRegisterFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		d, err := rt.coordinator.RegisterDomain(ctx, args[0], args[1:], domainRegisterFlags.replace)
		if err != nil {
			return err
		}
		fmt.Printf("Registered domain %q owning: %s\n", d.Name, strings.Join(d.Patterns, ", "))
		return nil
	},
}

var domainListFlags struct {
	session string
}

var domainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, domainListFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		domains := rt.coordinator.Domains()
		if len(domains) == 0 {
			fmt.Println("No domains registered")
			return nil
		}
		for _, d := range domains {
			fmt.Printf("%-20s %s\n", d.Name, strings.Join(d.Patterns, ", "))
		}
		return nil
	},
}

var domainOwnerFlags struct {
	session string
}

var domainOwnerCmd = &cobra.Command{
	Use:   "owner PATH",
	Short: "Look up which domain owns a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx, domainOwnerFlags.session)
		if err != nil {
			return err
		}
		defer rt.Close()

		if d := rt.coordinator.OwnerOf(args[0]); d != nil {
			fmt.Printf("%s is owned by domain %q\n", args[0], d.Name)
		} else {
			fmt.Printf("%s is unowned - any agent may edit it\n", args[0])
		}
		return nil
	},
}

func init() {
	domainRegisterCmd.Flags().StringVarP(&domainRegisterFlags.session, "session", "s", "", "Session name")
	domainRegisterCmd.Flags().BoolVar(&domainRegisterFlags.replace, "replace", false, "Replace the domain if it already exists")
	domainListCmd.Flags().StringVarP(&domainListFlags.session, "session", "s", "", "Session name")
	domainOwnerCmd.Flags().StringVarP(&domainOwnerFlags.session, "session", "s", "", "Session name")

	domainCmd.AddCommand(domainRegisterCmd)
	domainCmd.AddCommand(domainListCmd)
	domainCmd.AddCommand(domainOwnerCmd)
}
