package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gatewayd/internal/keystore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "keyctl:", err)
		os.Exit(1)
	}
}

// defaultKeysFile mirrors the gateway's resolution: explicit file beats the
// data directory convention.
func defaultKeysFile() string {
	if v := os.Getenv("AUTH_KEYS_FILE"); v != "" {
		return v
	}
	dir := os.Getenv("DATA_DIR")
	if dir == "" {
		dir = "/data"
	}
	return filepath.Join(dir, "api_keys.txt")
}

func newRootCmd() *cobra.Command {
	var (
		keysFile string
		quiet    bool
	)
	root := &cobra.Command{
		Use:           "keyctl",
		Short:         "Manage gatewayd API keys",
		Long:          "keyctl issues, lists, revokes and rotates the API keys the gateway\nauthenticates against. Secrets are printed exactly once at issue time;\nthe key file stores only salted digests.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&keysFile, "keys-file", defaultKeysFile(), "API key file (defaults AUTH_KEYS_FILE or $DATA_DIR/api_keys.txt)")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only secrets (for scripting)")

	var (
		genName    string
		genRate    int
		genExpires string
	)
	genCmd := &cobra.Command{
		Use:     "generate",
		Short:   "Issue a new API key",
		Example: "  keyctl generate --name alice-laptop --rate-limit 120 --expires 30d",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := genName
			if name == "" {
				name = "key-" + uuid.NewString()[:8]
			}
			expires, err := parseExpiry(genExpires)
			if err != nil {
				return err
			}
			st, err := openStore(keysFile)
			if err != nil {
				return err
			}
			secret, err := st.Issue(name, genRate, expires)
			if err != nil {
				return err
			}
			if quiet {
				fmt.Println(secret)
				return nil
			}
			fmt.Printf("Generated key %q: %s\n", name, secret)
			fmt.Println("Store this secret now; it cannot be recovered later.")
			return nil
		},
	}
	genCmd.Flags().StringVar(&genName, "name", "", "key id (derived from a UUID when omitted)")
	genCmd.Flags().IntVar(&genRate, "rate-limit", 0, "requests per minute (0: gateway default)")
	genCmd.Flags().StringVar(&genExpires, "expires", "", "expiry, RFC 3339 or relative (30d, 24h, 60m)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured keys (never secrets)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := keystore.Open(keysFile)
			if err != nil {
				return err
			}
			infos := st.List()
			if !quiet {
				writeTable(os.Stdout, infos, time.Now())
			}
			fmt.Printf("%d key(s) configured\n", len(infos))
			return nil
		},
	}

	var revokeName string
	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Disable a key immediately, keeping its entry for audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := keystore.Open(keysFile)
			if err != nil {
				return err
			}
			if err := st.Revoke(revokeName); err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("Revoked key %q.\n", revokeName)
			}
			return nil
		},
	}
	revokeCmd.Flags().StringVar(&revokeName, "name", "", "key id")
	_ = revokeCmd.MarkFlagRequired("name")

	var removeName string
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete a key entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := keystore.Open(keysFile)
			if err != nil {
				return err
			}
			if err := st.Remove(removeName); err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("Removed key %q.\n", removeName)
			}
			return nil
		},
	}
	removeCmd.Flags().StringVar(&removeName, "name", "", "key id")
	_ = removeCmd.MarkFlagRequired("name")

	var (
		rotateName    string
		rotateExpires string
	)
	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Regenerate the secret for an existing key",
		Long:  "Rotate replaces the secret of an existing key. The rate limit is\npreserved; the expiry is preserved unless --expires is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var expPtr *time.Time
			if rotateExpires != "" {
				exp, err := parseExpiry(rotateExpires)
				if err != nil {
					return err
				}
				expPtr = &exp
			}
			st, err := keystore.Open(keysFile)
			if err != nil {
				return err
			}
			secret, err := st.Rotate(rotateName, expPtr)
			if err != nil {
				return err
			}
			if quiet {
				fmt.Println(secret)
				return nil
			}
			fmt.Printf("Rotated key %q: %s\n", rotateName, secret)
			return nil
		},
	}
	rotateCmd.Flags().StringVar(&rotateName, "name", "", "key id")
	rotateCmd.Flags().StringVar(&rotateExpires, "expires", "", "new expiry, RFC 3339 or relative (30d, 24h, 60m)")
	_ = rotateCmd.MarkFlagRequired("name")

	root.AddCommand(genCmd, listCmd, revokeCmd, removeCmd, rotateCmd)
	return root
}

func openStore(path string) (*keystore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	return keystore.Open(path)
}

func writeTable(w *os.File, infos []keystore.Info, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY_ID\tRATE_LIMIT\tEXPIRES\tSTATUS")
	for _, k := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, rateLabel(k), expiresLabel(k), statusLabel(k, now))
	}
	tw.Flush()
}

func rateLabel(k keystore.Info) string {
	if k.RateLimit > 0 {
		return fmt.Sprintf("%d/min", k.RateLimit)
	}
	return "default"
}

func expiresLabel(k keystore.Info) string {
	if k.ExpiresAt.IsZero() {
		return "-"
	}
	return k.ExpiresAt.Format(time.RFC3339)
}

func statusLabel(k keystore.Info, now time.Time) string {
	switch {
	case k.Revoked:
		return "revoked"
	case k.Expired(now):
		return "expired"
	default:
		return "active"
	}
}
