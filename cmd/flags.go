package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ornithopter83/selftrack/internal/config"
)

// configFlags are the config overrides shared by the commands.
type configFlags struct {
	baseURL    string
	addr       string
	mirror     bool
	display    string
	header     string
	viewport   string
	markers    string
	mqttBroker string
	mqttTopic  string
}

func (f *configFlags) bindLinks(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.baseURL, "base-url", "u", "", "Relay page URL (env SELFTRACK_BASE_URL)")
}

func (f *configFlags) bindMarkers(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.markers, "markers", "m", "", "Marker set YAML file (env SELFTRACK_MARKERS)")
}

func (f *configFlags) bindReceiver(cmd *cobra.Command) {
	f.bindLinks(cmd)
	f.bindMarkers(cmd)
	cmd.Flags().StringVarP(&f.addr, "addr", "a", "", "Receiver page listen address (env SELFTRACK_ADDR)")
	cmd.Flags().BoolVar(&f.mirror, "mirror", config.DefaultMirror, "Mirror landmarks horizontally (env SELFTRACK_MIRROR)")
	cmd.Flags().StringVar(&f.display, "display", "", "Display size WxH the window is centered on (env SELFTRACK_DISPLAY)")
	cmd.Flags().StringVar(&f.header, "header", "", "Header height in pixels (env SELFTRACK_HEADER)")
	cmd.Flags().StringVar(&f.viewport, "viewport", "", "Video size WxH until the relay reports one (env SELFTRACK_VIEWPORT)")
	cmd.Flags().StringVar(&f.mqttBroker, "mqtt-broker", "", "Publish frames to this MQTT broker (env SELFTRACK_MQTT_BROKER)")
	cmd.Flags().StringVar(&f.mqttTopic, "mqtt-topic", "", "MQTT topic prefix (env SELFTRACK_MQTT_TOPIC)")
}

// load resolves the configuration. Flags win over the environment, which
// wins over defaults.
func (f *configFlags) load(cmd *cobra.Command) (*config.Config, error) {
	opts := config.Options{
		BaseURL:     f.baseURL,
		Addr:        f.addr,
		Display:     f.display,
		Header:      f.header,
		Viewport:    f.viewport,
		MarkersFile: f.markers,
		MQTTBroker:  f.mqttBroker,
		MQTTTopic:   f.mqttTopic,
	}
	if flag := cmd.Flags().Lookup("mirror"); flag != nil && flag.Changed {
		opts.Mirror = strconv.FormatBool(f.mirror)
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
