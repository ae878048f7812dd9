package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/config"
	"github.com/khoadang148/carehome-system-sub011/internal/infrastructure/redpanda"
)

func topicsCmd() *cobra.Command {
	var admin *redpanda.Admin

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage Kafka/Redpanda topics",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := brokers()
			if err != nil {
				return err
			}
			if err := redpanda.HealthCheck(cmd.Context(), seeds); err != nil {
				return fmt.Errorf("brokers %v: %w", seeds, err)
			}
			admin, err = redpanda.NewAdmin(seeds, zap.NewNop())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if admin != nil {
				admin.Close()
			}
		},
	}

	ensureCmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the service topics if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			replication, _ := cmd.Flags().GetInt16("replication")
			if err := admin.EnsureTopics(cmd.Context(), replication); err != nil {
				return err
			}
			for _, tc := range redpanda.DefaultTopicConfigs() {
				fmt.Fprintln(cmd.OutOrStdout(), tc.Name)
			}
			return nil
		},
	}
	ensureCmd.Flags().Int16("replication", 1, "Replication factor")
	cmd.AddCommand(ensureCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := admin.ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "describe <topic>",
		Short: "Show partition leaders and replicas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := admin.DescribeTopic(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PARTITION\tLEADER\tREPLICAS\tISR")
			for _, p := range details.Partitions {
				fmt.Fprintf(tw, "%d\t%d\t%v\t%v\n", p.ID, p.Leader, p.Replicas, p.ISR)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lag [group]",
		Short: "Show consumer group lag (defaults to CONSUMER_GROUP)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := ""
			if len(args) == 1 {
				group = args[0]
			} else {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				group = cfg.ConsumerGroup
			}
			lag, err := admin.GetConsumerGroupLag(cmd.Context(), group)
			if err != nil {
				return err
			}
			topics := make([]string, 0, len(lag))
			for topic := range lag {
				topics = append(topics, topic)
			}
			sort.Strings(topics)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOPIC\tPARTITION\tLAG")
			for _, topic := range topics {
				partitions := make([]int32, 0, len(lag[topic]))
				for p := range lag[topic] {
					partitions = append(partitions, p)
				}
				sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
				for _, p := range partitions {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", topic, p, lag[topic][p])
				}
			}
			return tw.Flush()
		},
	})

	deleteCmd := &cobra.Command{
		Use:   "delete <topic>...",
		Short: "Delete topics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to delete %v without --yes", args)
			}
			return admin.DeleteTopics(cmd.Context(), args...)
		},
	}
	deleteCmd.Flags().Bool("yes", false, "Confirm deletion")
	cmd.AddCommand(deleteCmd)

	return cmd
}
