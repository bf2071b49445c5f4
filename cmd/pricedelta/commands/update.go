package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update [symbols...]",
	Short: "종목 등락률 일괄 갱신",
	Long: `종목별 일봉을 조회해 등락률을 계산하고 한 번의 트랜잭션으로 저장합니다.

인자가 없으면 SYMBOLS 환경변수(기본: AAPL AMZN META GOOGL NFLX)를 사용합니다.
한 종목의 실패는 나머지 종목 처리에 영향을 주지 않습니다.

Example:
  go run ./cmd/pricedelta update
  go run ./cmd/pricedelta update AAPL MSFT NVDA`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	d, err := newDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.alphaVantage.HasAPIKey() {
		return fmt.Errorf("ALPHA_VANTAGE_KEY is not set")
	}

	symbols := d.cfg.Symbols
	if len(args) > 0 {
		symbols = make([]string, 0, len(args))
		for _, arg := range args {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(arg)))
		}
	}

	PrintHeader(out, fmt.Sprintf("Stock update: %s", strings.Join(symbols, ", ")))

	ctx, cancel := context.WithTimeout(cmd.Context(), d.cfg.Batch.Timeout)
	defer cancel()

	run, err := d.orchestrator.Run(ctx, symbols)
	PrintBatchRun(out, run)

	if err != nil {
		PrintError(out, err.Error())
		return err
	}

	if !run.Committed {
		PrintWarning(out, "Nothing to commit")
		return nil
	}

	PrintSuccess(out, "Update committed")
	return nil
}
