package cli

import (
	"github.com/spf13/cobra"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"github.com/stemsi/paradox-backend/internal/repository"
	"github.com/stemsi/paradox-backend/internal/service"
)

// NewSeedQuestionsCmd fills empty question slots with the bundled defaults.
func NewSeedQuestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-questions",
		Short: "Seed empty question slots with the bundled defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bank, err := questionbank.Defaults()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			// Seeding only inserts into empty slots, so no cache entry exists
			// to invalidate.
			questions := service.NewQuestionService(repository.NewQuestionSlotRepository(e.pool), nil, bank, e.log)
			n, err := questions.SeedIfEmpty(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Seeded %d question slot(s)\n", n)
			return nil
		},
	}
}
