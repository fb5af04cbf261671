package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jrsteele09/go-publish-agent/internal/config"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
	"github.com/spf13/cobra"
)

var tokensVerify bool

// newTokenStore builds the credential store. A configured IV is always accepted for
// reading records that carry no format, and is only used for writing in fixed-IV mode.
func newTokenStore(c config.Config) *tokenstore.FileStore {
	var opts []tokenstore.CipherOption
	if iv := c.GetFixedIV(); len(iv) > 0 {
		if c.UseFixedIV() {
			opts = append(opts, tokenstore.WithFixedIV(iv))
		} else {
			opts = append(opts, tokenstore.WithLegacyIV(iv))
		}
	}
	return tokenstore.NewFileStore(c.GetTokensFile(), tokenstore.NewCipher(c.GetEncryptionSalt(), opts...))
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Inspect the stored credential record",
}

var tokensStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a credential record exists",
	Long: `Reports whether a credential record exists.

With --verify the full configuration is loaded and the record is decrypted,
which proves ENCRYPTION_KEY and ENCRYPTION_SALT still match it. Tokens are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !tokensVerify {
			env, err := config.NewEnvVars()
			if err != nil {
				return err
			}
			store := tokenstore.NewFileStore(env.GetTokensFile(), nil)
			return printTokenStatus(cmd.OutOrStdout(), tokenStatus{Path: store.Path(), Exists: store.Exists()})
		}

		c, err := config.New()
		if err != nil {
			return err
		}
		store := newTokenStore(c)
		status := tokenStatus{Path: store.Path(), Exists: store.Exists()}
		if status.Exists {
			status.Verified = true
			_, status.VerifyErr = store.Load(c.GetEncryptionKey())
		}
		return printTokenStatus(cmd.OutOrStdout(), status)
	},
}

type tokenStatus struct {
	Path      string
	Exists    bool
	Verified  bool
	VerifyErr error
}

func init() {
	tokensStatusCmd.Flags().BoolVar(&tokensVerify, "verify", false, "decrypt the record with the configured key")
	tokensCmd.AddCommand(tokensStatusCmd)
}

// printTokenStatus writes the report and returns the decryption error, if any.
func printTokenStatus(w io.Writer, st tokenStatus) error {
	fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("File:"), st.Path)
	if !st.Exists {
		fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("Credentials:"), text.FgYellow.Sprint("missing"))
		return nil
	}
	fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("Credentials:"), text.FgGreen.Sprint("present"))
	if !st.Verified {
		return nil
	}
	if st.VerifyErr != nil {
		fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("Decrypts:"), text.FgRed.Sprint("no"))
		return st.VerifyErr
	}
	fmt.Fprintf(w, "%s %s\n", text.FgHiBlue.Sprint("Decrypts:"), text.FgGreen.Sprint("yes"))
	return nil
}
