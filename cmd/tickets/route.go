package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kanugurajesh/Assistly/internal/bootstrap"
	"github.com/kanugurajesh/Assistly/internal/core/usecase"
)

func routeCMD() *cobra.Command {
	var subject, body string

	var cmd = &cobra.Command{
		Use:   "route [content]",
		Short: "Classify one ticket and print the routing decision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				subject, body = usecase.ParseTicketContent(args[0])
			}
			if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
				return fmt.Errorf("ticket content is required: pass it as an argument or use --subject/--body")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			classifier, err := bootstrap.NewTicketClassifier(cfg, nil)
			if err != nil {
				return err
			}

			cls := classifier.Classify(cmd.Context(), subject, body)
			router := usecase.NewTicketRouter(cfg.RoutingRAGTopics, cfg.RoutingTeamMessages)
			decision := router.Decide(cls)
			out := map[string]any{
				"classification": cls,
				"decision":       decision,
			}
			if !decision.UseRAG {
				out["message"] = router.Message(decision)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "ticket subject")
	cmd.Flags().StringVar(&body, "body", "", "ticket body")

	return cmd
}
