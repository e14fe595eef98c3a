package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"expectation-svc/config"
	"expectation-svc/handlers"
	"expectation-svc/kafka"
	"expectation-svc/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPublishCmd(configPath *string) *cobra.Command {
	var (
		sample bool
		file   string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a settlement message, or the sample set, to the payments topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}
			defer logger.Sync()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			var messages []models.PaymentMessage
			if sample {
				messages = handlers.SamplePayments(time.Now())
			} else {
				msg, err := readMessage(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
			}

			producer, err := kafka.InitProducer(cfg.Kafka, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize Kafka producer: %w", err)
			}
			defer producer.Close()

			publisher := kafka.NewPublisher(producer, cfg.Kafka.Topic, logger)
			for _, msg := range messages {
				if err := publisher.Publish(context.Background(), msg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s (%s)\n", msg.IdentificationField, msg.BeneficiaryName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sample, "sample", false, "publish the three sample utility bills")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON message file; stdin when empty")
	return cmd
}

func readMessage(stdin io.Reader, file string) (models.PaymentMessage, error) {
	var (
		raw []byte
		err error
	)
	if file != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return models.PaymentMessage{}, fmt.Errorf("failed to read message: %w", err)
	}
	if len(raw) == 0 {
		return models.PaymentMessage{}, errors.New("no message given; pass --file, pipe JSON on stdin or use --sample")
	}
	return models.DecodePaymentMessage(raw)
}
