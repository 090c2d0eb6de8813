// Command rtpsgo-probe starts a single DomainParticipant and optionally
// publishes or subscribes on a topic, for manual exercise of the dds
// package from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rtpsgo/rtpsgo/dds"
	"github.com/rtpsgo/rtpsgo/internal/config"
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

var (
	domainID      int
	domainTag     string
	configPath    string
	topicName     string
	typeName      string
	reliable      bool
	period        time.Duration
	payload       string
	participantID int
	network       bool

	log = telemetry.NewLogger("rtpsgo-probe")
)

var rootCmd = &cobra.Command{
	Use:   "rtpsgo-probe",
	Short: "Start a DDS participant and optionally publish or subscribe on a topic",
}

func domainConfig() config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	if configPath != "" {
		cfg = config.LoadDomainConfig(configPath)
	}
	if domainTag != "" {
		cfg.DomainTag = domainTag
	}
	cfg.DomainID = domainID
	cfg.ParticipantID = participantID
	cfg.Network = network
	cfg = config.ApplyEnvOverrides(cfg)
	return cfg
}

func topicQos() qos.Qos {
	q := qos.Default()
	if reliable {
		q.Reliability.Kind = qos.Reliable
	}
	return q
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create a DataWriter and periodically publish payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := dds.GetInstance().CreateParticipant(int32(domainID), domainConfig(), dds.ParticipantListener{})
		if err != nil {
			return err
		}
		if err := p.Enable(); err != nil {
			return err
		}
		topic, err := p.CreateTopic(topicName, typeName, topicQos())
		if err != nil {
			return err
		}
		pub := p.CreatePublisher(qos.Default())
		if err := pub.Enable(); err != nil {
			return err
		}
		w, err := pub.CreateDataWriter(topic, topicQos())
		if err != nil {
			return err
		}
		if err := w.Enable(); err != nil {
			return err
		}

		log.Printf("publishing on %q every %s", topicName, period)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-ticker.C:
				n++
				key := []byte(fmt.Sprintf("probe-%d", n))
				data := []byte(fmt.Sprintf("%s #%d", payload, n))
				if err := w.Write(key, data, rtps.InstanceHandleNil); err != nil {
					log.Printf("write failed: %v", err)
				}
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Create a DataReader and print samples as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := dds.GetInstance().CreateParticipant(int32(domainID), domainConfig(), dds.ParticipantListener{})
		if err != nil {
			return err
		}
		if err := p.Enable(); err != nil {
			return err
		}
		topic, err := p.CreateTopic(topicName, typeName, topicQos())
		if err != nil {
			return err
		}
		sub := p.CreateSubscriber(qos.Default())
		if err := sub.Enable(); err != nil {
			return err
		}
		r, err := sub.CreateDataReader(topic, topicQos())
		if err != nil {
			return err
		}
		if err := r.Enable(); err != nil {
			return err
		}

		log.Printf("subscribed to %q", topicName)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				samples, err := r.Take(32, history.Filter{}, nil)
				if err != nil {
					continue
				}
				for _, s := range samples {
					log.Printf("sample: %s", s.Data)
				}
			case <-cmd.Context().Done():
				return nil
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&domainID, "domain", 0, "DDS domain id")
	rootCmd.PersistentFlags().StringVar(&domainTag, "domain-tag", "", "domain tag override")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a domain config YAML file")
	rootCmd.PersistentFlags().StringVar(&topicName, "topic", "probe", "topic name")
	rootCmd.PersistentFlags().StringVar(&typeName, "type", "probe::Sample", "topic type name")
	rootCmd.PersistentFlags().BoolVar(&reliable, "reliable", false, "use RELIABLE instead of BEST_EFFORT")
	rootCmd.PersistentFlags().IntVar(&participantID, "participant-id", 0, "participant id; vary this across processes sharing a domain and host so their unicast ports don't collide")
	rootCmd.PersistentFlags().BoolVar(&network, "network", true, "exchange discovery and data over real UDP sockets (disable for an in-process-only run)")
	_ = viper.BindPFlag("domain", rootCmd.PersistentFlags().Lookup("domain"))

	publishCmd.Flags().DurationVar(&period, "period", time.Second, "publish period")
	publishCmd.Flags().StringVar(&payload, "payload", "hello", "payload string to publish")

	rootCmd.AddCommand(publishCmd, subscribeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
