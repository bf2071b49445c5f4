package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/pricedelta/internal/seed"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "초기 종목 데이터 적재",
	Long: `기본 10개 종목의 초기 레코드(임시 지표)를 저장합니다.
실패한 종목은 기록만 하고 나머지는 계속 진행합니다.

Example:
  go run ./cmd/pricedelta seed`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	d, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	records, err := seed.DefaultRecords()
	if err != nil {
		return err
	}

	PrintHeader(out, fmt.Sprintf("Seeding %d stocks", len(records)))

	written, failed := seed.NewSeeder(d.repo, d.log).Run(cmd.Context(), records)

	PrintKeyValue(out, "Written", fmt.Sprintf("%d", written), 7)
	PrintKeyValue(out, "Failed", fmt.Sprintf("%d", failed), 7)

	if failed > 0 {
		PrintWarning(out, fmt.Sprintf("%d stocks were not seeded, see logs", failed))
		return nil
	}

	PrintSuccess(out, "Seeding complete")
	return nil
}
