package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/ornithopter83/selftrack/internal/config"
	"github.com/ornithopter83/selftrack/internal/export"
	"github.com/ornithopter83/selftrack/internal/logging"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/qr"
	"github.com/ornithopter83/selftrack/internal/receiver"
	"github.com/ornithopter83/selftrack/internal/server"
	"github.com/ornithopter83/selftrack/internal/session"
	"github.com/ornithopter83/selftrack/internal/ui"
)

const (
	statusInterval = 250 * time.Millisecond
	snapshotWait   = time.Second
)

var (
	receiveFlags   configFlags
	flagToken      string
	flagNoTUI      bool
	flagLogFile    string
	flagShowQRCode bool
)

var receiveCmd = &cobra.Command{
	Use:     "receive",
	Aliases: []string{"r"},
	Short:   "Start a receiver session and overlay landmarks from a phone camera",
	Long: `Start a receiver session: a fresh session token is generated, the camera link
is shown as a QR code and a local receiver page is served. Open the page on this
machine, scan the code with the phone and markers follow the body in real time.

Examples:
  selftrack receive
  selftrack receive --viewport 1280x720 --markers markers.yaml
  selftrack receive --token ab12cd34 --no-tui
  selftrack receive --mqtt-broker tcp://localhost:1883`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := receiveFlags.load(cmd)
		if err != nil {
			return err
		}

		token := session.Generate()
		if flagToken != "" {
			if token, err = session.ParseToken(flagToken); err != nil {
				return err
			}
		}
		return runReceiver(cmd.Context(), cfg, token)
	},
}

func runReceiver(ctx context.Context, cfg *config.Config, token session.Token) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	cfg.Addr = ln.Addr().String()

	rcv := receiver.New(cfg, token)
	srv, err := server.New(rcv)
	if err != nil {
		ln.Close()
		return err
	}
	rcv.AddSink(srv.Hub())

	var exporter *export.MQTTExporter
	if cfg.ExportEnabled() {
		exporter = connectExporter(ctx, cfg, token)
		if exporter != nil {
			rcv.SetExporter(exporter)
			defer exporter.Close()
		}
	}

	printSession(cfg, rcv)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The loop outlives ctx so the summary can still read its state.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	errc := make(chan error, 2)
	go func() {
		if err := rcv.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			errc <- err
		}
		cancel()
	}()
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			errc <- err
		}
		cancel()
	}()

	started := time.Now()
	if flagNoTUI {
		ui.PrintInfo("Receiving. Press Ctrl+C to stop.")
		<-ctx.Done()
	} else {
		if flagLogFile != "" {
			closeLog, err := logging.ToFile(flagLogFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer closeLog()
		}
		model := ui.NewStatusModel(statusSource(ctx, cfg, rcv, srv.Hub(), exporter), statusInterval)
		if err := ui.RunStatus(ctx, model); err != nil {
			slog.Error("status view failed", "error", err)
		}
	}

	snapCtx, snapCancel := context.WithTimeout(loopCtx, snapshotWait)
	snap, snapErr := rcv.Snapshot(snapCtx)
	snapCancel()

	cancel()
	rcv.Close()

	fmt.Println()
	if snapErr == nil {
		ui.RenderSummary(ui.IconStats+" Session Summary", summaryOf(snap, time.Since(started), exporter))
	}

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

func connectExporter(ctx context.Context, cfg *config.Config, token session.Token) *export.MQTTExporter {
	exporter := export.NewMQTTExporter(cfg.MQTTBroker, cfg.MQTTTopic, token)

	s := ui.NewConnectionSpinner("Connecting to MQTT broker...")
	s.Start()
	if err := exporter.Connect(ctx); err != nil {
		s.Error(fmt.Sprintf("Frame export disabled: %v", err))
		exporter.Close()
		return nil
	}
	s.Success(fmt.Sprintf("Exporting frames to %s", exporter.Topic()))
	return exporter
}

func printSession(cfg *config.Config, rcv *receiver.Receiver) {
	urls := rcv.URLs()

	fmt.Println()
	fmt.Println(ui.SessionInfo{
		Token:    rcv.Token().String(),
		Sender:   urls.Sender,
		Receiver: urls.Receiver,
		Page:     cfg.PageURL(),
	}.View())

	if flagShowQRCode {
		code, err := qr.Terminal(urls.Sender)
		if err != nil {
			ui.PrintWarningf("Could not render QR code: %v", err)
		} else {
			fmt.Printf("\n%s Scan with the phone camera:\n\n%s", ui.IconQR, code)
		}
	}

	fmt.Println()
	fmt.Println(ui.MarkerTable(cfg.Markers))
}

func statusSource(ctx context.Context, cfg *config.Config, rcv *receiver.Receiver, hub *server.Hub, exporter *export.MQTTExporter) ui.StatusSource {
	return func() (ui.Status, error) {
		snapCtx, cancel := context.WithTimeout(ctx, snapshotWait)
		defer cancel()

		snap, err := rcv.Snapshot(snapCtx)
		if err != nil {
			return ui.Status{}, fmt.Errorf("read receiver state: %w", err)
		}

		s := ui.Status{
			Token:     snap.Token.String(),
			Sender:    snap.URLs.Sender,
			Page:      cfg.PageURL(),
			Pages:     hub.Pages(),
			Viewport:  snap.Viewport.String(),
			Position:  fmt.Sprintf("%d,%d", snap.Position.X, snap.Position.Y),
			Frames:    snap.Frames,
			LastFrame: snap.LastFrame,
			Ignored:   snap.Channel.Ignored,
			Dropped:   snap.Channel.Dropped(),
		}
		for _, m := range snap.Markers {
			s.Markers = append(s.Markers, ui.MarkerStatus{
				Name:       m.Marker.Name,
				Label:      m.Marker.Label,
				Color:      pose.Hex(m.Marker.Color),
				Visibility: m.Visibility,
				Drawn:      m.Drawn,
			})
		}
		if exporter != nil {
			st := exporter.Stats()
			s.Export = exporter.Topic()
			s.ExportConnected = st.Connected
			s.Exported = st.Published
		}
		return s, nil
	}
}

func summaryOf(snap receiver.Snapshot, elapsed time.Duration, exporter *export.MQTTExporter) ui.Summary {
	s := ui.Summary{
		Token:    snap.Token.String(),
		Duration: elapsed,
		Viewport: snap.Viewport.String(),
		Frames:   snap.Frames,
		Resizes:  snap.Channel.Resizes,
		Ignored:  snap.Channel.Ignored,
		Dropped:  snap.Channel.Dropped(),
	}
	if exporter != nil {
		st := exporter.Stats()
		s.Export = exporter.Topic()
		s.Exported = st.Published
		s.ExportErr = st.Errors
	}
	return s
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveFlags.bindReceiver(receiveCmd)
	receiveCmd.Flags().StringVarP(&flagToken, "token", "t", "", "Reuse a session token or camera link instead of generating one")
	receiveCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "Print logs instead of the live status view")
	receiveCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file while the status view is shown")
	receiveCmd.Flags().BoolVar(&flagShowQRCode, "qr", true, "Print the camera link as a QR code")
}
