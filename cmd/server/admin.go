package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bethelevents/assessor/internal/config"
	"github.com/bethelevents/assessor/internal/middleware"
	"github.com/bethelevents/assessor/internal/models"
	"github.com/bethelevents/assessor/internal/services"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSeedCmd(cfgFile func() string) *cobra.Command {
	var p models.Participant
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample participant and issue its form",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfgFile(), os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			p.CreatedAt = time.Now().UTC()
			if err := a.store.AddParticipant(cmd.Context(), &p); err != nil {
				return err
			}
			f, err := a.forms.FormFor(cmd.Context(), p.ID)
			if services.IsCode(err, services.ErrorNotFound) {
				f, err = a.forms.Issue(cmd.Context(), p.ID)
			}
			if err != nil {
				return err
			}
			link, err := a.forms.Link(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"participant": p, "form": link})
		},
	}
	cmd.Flags().StringVar(&p.ID, "id", "sample-participant", "participant id")
	cmd.Flags().StringVar(&p.FullName, "name", "Participante Exemplo", "full name")
	cmd.Flags().StringVar(&p.RevenueBand, "revenue", "R$ 50 mil a R$ 100 mil", "revenue band")
	cmd.Flags().StringVar(&p.Niche, "niche", "Consultoria", "business niche")
	cmd.Flags().StringVar(&p.EventGoal, "goal", "Escalar vendas", "event goal")
	cmd.Flags().StringVar(&p.MainDifficulty, "difficulty", "Fechamento de vendas", "main difficulty")
	return cmd
}

func newIssueCmd(cfgFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <participantId>",
		Short: "Issue the form for a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfgFile(), os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			f, err := a.forms.Issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			link, err := a.forms.Link(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), link)
		},
	}
}

func newReprocessCmd(cfgFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <participantId>",
		Short: "Regenerate the narrative of a stored response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfgFile(), os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			res, err := a.responses.ReprocessParticipant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newTokenCmd(cfgFile func() string) *cobra.Command {
	var (
		uid  string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(cfgFile())
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.Auth.TokenTTL
			}
			tok, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret).Sign(uid, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "operator", "operator id")
	cmd.Flags().StringVar(&role, "role", "closer", "role (admin, closer, viewer)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	return cmd
}
