package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geocoding-cli/internal/credential"
)

var (
	credsRealm    string
	credsUsername string
	credsPassword string
	credsShow     bool
)

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage stored provider credentials",
}

var credsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the API key for a realm (reads it from stdin when --password is omitted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := credsPassword
		if password == "" {
			p, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			password = p
		}
		return withCredentialStore(cmd.Context(), func(s credential.Store) error {
			return setCredential(cmd.Context(), cmd.OutOrStdout(), s, &credential.Credential{
				Realm:    realmOrDefault(credsRealm),
				Username: credsUsername,
				Password: password,
			})
		})
	},
}

var credsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the credential stored for a realm",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentialStore(cmd.Context(), func(s credential.Store) error {
			return getCredential(cmd.Context(), cmd.OutOrStdout(), s, realmOrDefault(credsRealm), credsShow)
		})
	},
}

var credsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentialStore(cmd.Context(), func(s credential.Store) error {
			return listCredentials(cmd.Context(), cmd.OutOrStdout(), s, credsShow)
		})
	},
}

func withCredentialStore(ctx context.Context, fn func(credential.Store) error) error {
	s, err := credential.Open(ctx, cfg.Credential.Driver, cfg.Credential.DatabaseURL)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck
	return fn(s)
}

func realmOrDefault(realm string) string {
	if realm != "" {
		return realm
	}
	return cfg.Credential.Realm
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", eris.Wrap(err, "read password")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", eris.New("empty password: pass --password or pipe it on stdin")
	}
	return line, nil
}

func setCredential(ctx context.Context, w io.Writer, s credential.Store, c *credential.Credential) error {
	if err := s.Set(ctx, c); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "stored credential for realm %s\n", c.Realm)
	return err
}

func getCredential(ctx context.Context, w io.Writer, s credential.Store, realm string, show bool) error {
	c, err := s.Get(ctx, realm)
	if err != nil {
		return err
	}
	if !show {
		*c = c.Masked()
	}
	return printCredentials(w, []credential.Credential{*c})
}

func listCredentials(ctx context.Context, w io.Writer, s credential.Store, show bool) error {
	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	if !show {
		for i := range all {
			all[i] = all[i].Masked()
		}
	}
	return printCredentials(w, all)
}

func printCredentials(w io.Writer, creds []credential.Credential) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REALM\tUSERNAME\tPASSWORD\tUPDATED")
	for _, c := range creds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Realm, c.Username, c.Password, c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func init() {
	credsCmd.PersistentFlags().StringVar(&credsRealm, "realm", "", "credential realm (default credential.realm)")
	credsSetCmd.Flags().StringVar(&credsUsername, "username", "", "username stored alongside the key")
	credsSetCmd.Flags().StringVar(&credsPassword, "password", "", "API key to store (default: read from stdin)")
	credsGetCmd.Flags().BoolVar(&credsShow, "show", false, "print the key unmasked")
	credsListCmd.Flags().BoolVar(&credsShow, "show", false, "print keys unmasked")

	credsCmd.AddCommand(credsSetCmd, credsGetCmd, credsListCmd)
	rootCmd.AddCommand(credsCmd)
}
