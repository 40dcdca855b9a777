package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ornithopter83/selftrack/internal/qr"
	"github.com/ornithopter83/selftrack/internal/session"
	"github.com/ornithopter83/selftrack/internal/ui"
)

var (
	linkFlags  configFlags
	flagQRFile string
	flagLinkQR bool
)

var linkCmd = &cobra.Command{
	Use:   "link [token|url]",
	Short: "Print the camera and receiver links for a session token",
	Long: `Print the camera and receiver links for a session token. Without an argument a
new token is generated. The camera link can also be written as a QR image.

Examples:
  selftrack link
  selftrack link ab12cd34
  selftrack link "https://ornithopter83.github.io/Self-Tracking/?room=ab12cd34" --png qr.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := linkFlags.load(cmd)
		if err != nil {
			return err
		}

		token := session.Generate()
		if len(args) == 1 {
			if token, err = session.ParseToken(args[0]); err != nil {
				return err
			}
		}

		urls := cfg.URLs(token)
		fmt.Println(ui.SessionInfo{
			Token:    token.String(),
			Sender:   urls.Sender,
			Receiver: urls.Receiver,
		}.View())

		if flagLinkQR {
			code, err := qr.Terminal(urls.Sender)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s Scan with the phone camera:\n\n%s", ui.IconQR, code)
		}

		if flagQRFile == "" {
			return nil
		}
		code, err := qr.PNG(urls.Sender, qr.Size)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagQRFile, code, 0o644); err != nil {
			return fmt.Errorf("write QR image: %w", err)
		}
		ui.PrintSuccessf("QR code written to %s", flagQRFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)

	linkFlags.bindLinks(linkCmd)
	linkCmd.Flags().BoolVar(&flagLinkQR, "qr", true, "Print the camera link as a QR code")
	linkCmd.Flags().StringVar(&flagQRFile, "png", "", "Write the camera link QR code to this PNG file")
}
