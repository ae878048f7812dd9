package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
	"github.com/khoadang148/carehome-system-sub011/internal/revalidation"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Queue prescriptions for batch revalidation",
		Long: `Queue prescriptions for the revalidation worker.

The input is a JSON array of {"request_id", "prescriber", "medications"}
objects, or a single object. Missing request IDs are generated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			reqs, err := parseBatch(data)
			if err != nil {
				return err
			}

			records := make([]*redpanda.Record, 0, len(reqs))
			for i := range reqs {
				if reqs[i].RequestID == "" {
					reqs[i].RequestID = uuid.New().String()
				}
				value, err := json.Marshal(reqs[i])
				if err != nil {
					return err
				}
				records = append(records, &redpanda.Record{
					Topic: redpanda.TopicValidationRequests,
					Key:   reqs[i].RequestID,
					Value: value,
				})
			}

			seeds, err := brokers()
			if err != nil {
				return err
			}
			pcfg := redpanda.DefaultProducerConfig()
			pcfg.Brokers = seeds
			pcfg.ClientID = "rxcheck-cli"
			producer, err := redpanda.NewProducer(pcfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer producer.Close()

			if err := producer.ProduceBatch(cmd.Context(), records); err != nil {
				return fmt.Errorf("produce: %w", err)
			}
			for _, r := range reqs {
				fmt.Fprintln(cmd.OutOrStdout(), r.RequestID)
			}
			return nil
		},
	}
	return cmd
}

// parseBatch accepts an array of requests or a single request
func parseBatch(data []byte) ([]revalidation.Request, error) {
	var reqs []revalidation.Request
	if err := json.Unmarshal(data, &reqs); err == nil {
		return reqs, nil
	}
	var single revalidation.Request
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parse requests: %w", err)
	}
	return []revalidation.Request{single}, nil
}
